// Package retention enforces the rolling-window policy on status logs:
// cleanup runs on its own schedule, never inside the check loops.
package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/repo"
)

type Cleaner struct {
	logs   repo.LogStore
	window time.Duration
	logger *zap.Logger
	cron   *cron.Cron
}

func NewCleaner(logs repo.LogStore, window time.Duration, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		logs:   logs,
		window: window,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the prune job on the given cron schedule (e.g. "@hourly")
// and begins running it.
func (c *Cleaner) Start(schedule string) error {
	if _, err := c.cron.AddFunc(schedule, c.runOnce); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
}

func (c *Cleaner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-c.window)
	removed, err := c.logs.PruneLogs(ctx, cutoff)
	if err != nil {
		c.logger.Error("retention_prune_failed", zap.Error(err))
		return
	}
	if removed > 0 {
		c.logger.Info("retention_pruned",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
}
