package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// ActivityEntry is one auth outcome recorded on this terminal
type ActivityEntry struct {
	BaseModel
	Kind   string `json:"kind" gorm:"type:varchar(32);not null;index"`
	Email  string `json:"email,omitempty" gorm:"type:varchar(255)"`
	UserID string `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
	Detail string `json:"detail,omitempty" gorm:"type:text"`
}

// TableName keeps the table name stable if the type is renamed
func (ActivityEntry) TableName() string {
	return "activity_entries"
}

// AutoMigrate runs automatic migration for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&ActivityEntry{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
