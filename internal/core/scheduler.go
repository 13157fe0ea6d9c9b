package core

// scheduler.go keeps the store fresh in the background.
//
// The refresh job syncs immediately on start (the dashboard's initial load)
// and then on every tick. Failures are logged and left as the store's notice;
// the previous snapshot keeps being served. The job stops when its context is
// cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// RefreshConfig holds settings for the background refresh job.
type RefreshConfig struct {
	Interval time.Duration // Time between syncs (default: 30s)
	Timeout  time.Duration // Bound for each sync (default: 10s)
}

// StartRefreshScheduler runs periodic syncs until ctx is cancelled.
func (s *Store) StartRefreshScheduler(ctx context.Context, cfg RefreshConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	slog.Info("refresh scheduler started",
		"interval", cfg.Interval.String(),
		"timeout", cfg.Timeout.String(),
	)

	s.runRefresh(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefresh(ctx, cfg)
		}
	}
}

// runRefresh performs one bounded sync.
func (s *Store) runRefresh(ctx context.Context, cfg RefreshConfig) {
	syncCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	snap, err := s.Sync(syncCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("refresh failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Debug("refresh completed",
		"version", snap.Version,
		"records", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
