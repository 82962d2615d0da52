package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultRefreshSchedule is how often the refresher checks expiry
	DefaultRefreshSchedule = "@every 30s"
	// DefaultRefreshMargin refreshes sessions this close to expiry
	DefaultRefreshMargin = 60 * time.Second
)

// Refresher keeps the session alive by refreshing it shortly before it expires
type Refresher struct {
	client  *Client
	cron    *cron.Cron
	margin  time.Duration
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRefresher schedules expiry checks. schedule accepts cron expressions
// and descriptors such as "@every 30s".
func NewRefresher(client *Client, schedule string, logger zerolog.Logger) (*Refresher, error) {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}

	r := &Refresher{
		client:  client,
		cron:    cron.New(),
		margin:  DefaultRefreshMargin,
		timeout: 15 * time.Second,
		logger:  logger.With().Str("component", "refresher").Logger(),
	}

	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Start runs the schedule in the background
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running check to finish
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.RefreshIfExpiring(ctx, r.margin); err != nil {
		r.logger.Warn().Err(err).Msg("Session refresh failed")
	}
}
