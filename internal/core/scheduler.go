package core

// scheduler.go runs the catalog sync periodically.
//
// The scheduler is long-running and context-aware for graceful shutdown. A
// tick that finds another sync running is skipped rather than queued, and a
// failed run is logged without stopping the scheduler.

import (
	"context"
	"log/slog"
	"time"
)

// ScheduleConfig holds configuration for the sync scheduler.
type ScheduleConfig struct {
	Interval   time.Duration      // How often to run; <= 0 disables the scheduler
	RunOnStart bool               // Run once immediately
	Request    func() SyncRequest // Builds the sources for each run
}

// StartSyncScheduler blocks, running a sync every Interval until ctx is
// cancelled. It returns immediately when Interval is not positive.
func (s *Syncer) StartSyncScheduler(ctx context.Context, cfg ScheduleConfig) {
	if cfg.Interval <= 0 || cfg.Request == nil {
		slog.Info("sync scheduler disabled")
		return
	}
	slog.Info("sync scheduler started", "interval", cfg.Interval.String())

	if cfg.RunOnStart {
		s.runScheduled(ctx, cfg)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx, cfg)
		}
	}
}

// runScheduled performs one scheduled run unless a sync is already active.
func (s *Syncer) runScheduled(ctx context.Context, cfg ScheduleConfig) {
	if s.limiter.ActiveCount() > 0 {
		slog.Info("scheduled sync skipped, another sync is running")
		return
	}
	ctx = ContextWithTrigger(ctx, TriggerScheduler)
	if _, err := s.Run(ctx, cfg.Request()); err != nil {
		slog.Error("scheduled sync failed", "error", err)
	}
}
