// internal/maintenance/janitor.go
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gitsync-standup/internal/database"
)

// Janitor periodically enforces the retention policy: activity rows
// older than the retention window and stale pending token requests are
// deleted. Runs until its context is cancelled.
type Janitor struct {
	db            database.Querier
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

func NewJanitor(db database.Querier, retentionDays int, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		db:            db,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

// Start runs sweep cycles on the configured interval, beginning with an
// immediate pass.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting retention janitor",
		"retention_days", j.retentionDays, "interval", j.interval.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			j.logger.Info("Retention janitor shutting down", "reason", ctx.Err())
			return
		}
	}
}

// sweep deletes expired rows from each table in parallel. Failures are
// logged and retried on the next cycle; a partial sweep is fine.
func (j *Janitor) sweep(ctx context.Context) {
	now := time.Now().UTC()
	activityCutoff := now.AddDate(0, 0, -j.retentionDays)
	// Pending requests expire after minutes, not days; anything older
	// than a day is definitely garbage.
	pendingCutoff := now.AddDate(0, 0, -1)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := j.db.DeleteActivitiesBefore(gctx, activityCutoff)
		if err != nil {
			j.logger.Error("Failed to sweep activity rows", "error", err)
			return nil
		}
		if n > 0 {
			j.logger.Info("Swept expired activity rows", "count", n)
		}
		return nil
	})

	g.Go(func() error {
		n, err := j.db.DeletePendingTokenRequestsBefore(gctx, pendingCutoff)
		if err != nil {
			j.logger.Error("Failed to sweep pending token requests", "error", err)
			return nil
		}
		if n > 0 {
			j.logger.Info("Swept stale pending token requests", "count", n)
		}
		return nil
	})

	_ = g.Wait()
}
