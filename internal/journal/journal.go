// Package journal keeps a local log of auth activity on this terminal.
package journal

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/models"
)

// DefaultLimit is the page size of Recent when none is given
const DefaultLimit = 50

// Journal stores activity entries in a local SQLite database
type Journal struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the journal at path and migrates it
func Open(path string, zlog zerolog.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := initDatabase(path, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Journal{
		db:     db,
		logger: zlog.With().Str("component", "journal").Logger(),
	}, nil
}

// initDatabase opens the SQLite file with settings suited to a single writer
func initDatabase(path string, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns = 4
		maxIdleConns = 2
		busyTimeout  = 5000 // 5 seconds
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	// WAL must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA temp_store=2",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// Record implements authflow.ActivitySink
func (j *Journal) Record(ctx context.Context, activity authflow.Activity) error {
	entry := &models.ActivityEntry{
		Kind:   string(activity.Kind),
		Email:  activity.Email,
		UserID: activity.UserID,
		Detail: activity.Detail,
	}
	// Stored in UTC so entries sort by text
	entry.CreatedAt = activity.OccurredAt.UTC()
	if activity.OccurredAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := j.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	j.logger.Debug().
		Str("id", entry.ID).
		Str("kind", entry.Kind).
		Msg("Recorded activity")
	return nil
}

// Recent returns the newest entries first. A non-positive limit means DefaultLimit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var entries []models.ActivityEntry
	err := j.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

// Get returns one entry by ID
func (j *Journal) Get(ctx context.Context, id string) (*models.ActivityEntry, error) {
	var entry models.ActivityEntry
	if err := models.FindByID(j.db.WithContext(ctx), id, &entry); err != nil {
		return nil, fmt.Errorf("failed to get activity %s: %w", id, err)
	}
	return &entry, nil
}

// Close flushes and closes the database
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
