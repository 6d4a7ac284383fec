package core

// scheduler.go runs background maintenance for the job store.
//
// Finished import jobs keep their accepted records so they can be committed
// later. The retention sweep deletes jobs older than the retention window so
// that staged records do not pile up. A failed sweep is logged and retried on
// the next tick; it never stops the service.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
type RetentionConfig struct {
	JobRetention  time.Duration // Age after which jobs are deleted (default: 30 days)
	CheckInterval time.Duration // How often to sweep (default: 1h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.JobRetention <= 0 {
		c.JobRetention = 30 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	return c
}

// StartRetentionScheduler sweeps old jobs immediately, then every
// CheckInterval, until ctx is cancelled.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"job_retention", cfg.JobRetention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.PurgeExpiredJobs(ctx, cfg.JobRetention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.PurgeExpiredJobs(ctx, cfg.JobRetention)
		}
	}
}

// PurgeExpiredJobs deletes jobs created more than retention ago and
// returns how many were removed.
func (s *Service) PurgeExpiredJobs(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := s.clock.Now().Add(-retention)

	purged, err := s.jobs.PurgeJobs(ctx, cutoff)
	if err != nil {
		slog.Error("job purge failed", "error", err)
		return 0
	}
	slog.Info("purged expired jobs",
		"jobs_purged", purged,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
