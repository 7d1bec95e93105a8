package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper deletes expired tokens on a cron schedule. It needs no coordination
// with in-flight redemptions: an expired row can never be redeemed again.
type Reaper struct {
	repo     Repository
	cron     *cron.Cron
	schedule string
	now      func() time.Time
}

// NewReaper creates a Reaper, defaulting to an hourly schedule
func NewReaper(repo Repository, opts ...Option) *Reaper {
	o := buildOptions(opts)
	c := o.cron
	if c == nil {
		c = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return &Reaper{
		repo:     repo,
		cron:     c,
		schedule: o.schedule,
		now:      o.now,
	}
}

// RunOnce deletes every token whose expiry has passed and returns the count
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	count, err := r.repo.DeleteExpiredTokens(ctx, r.now())
	if err != nil {
		slog.Error("Failed to reap expired tokens", "error", err)
		return 0, fmt.Errorf("failed to reap expired tokens: %w", err)
	}
	slog.Info("Expired tokens reaped", "count", count)
	return count, nil
}

// Start registers the reap job and launches the scheduler
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			slog.Warn("Scheduled token reap failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reap schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	slog.Info("Token reaper started", "schedule", r.schedule)
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish
func (r *Reaper) Stop() context.Context {
	return r.cron.Stop()
}
