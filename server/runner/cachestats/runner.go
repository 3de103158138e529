// Package cachestats periodically logs cache backend statistics.
package cachestats

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/mindmap/store"
)

type Runner struct {
	store    *store.Store
	interval time.Duration
}

// NewRunner creates a cache statistics runner.
func NewRunner(store *store.Store) *Runner {
	return &Runner{
		store:    store,
		interval: 5 * time.Minute,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.logStats(ctx)
		case <-ctx.Done():
			slog.Info("cache stats runner stopped")
			return
		}
	}
}

// RunOnce logs the stats once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.logStats(ctx)
}

func (r *Runner) logStats(ctx context.Context) {
	stats := r.store.Cache().GetStats(ctx)
	slog.Info("cache stats",
		"total_keys", stats.TotalKeys,
		"memory_used", stats.MemoryUsed,
		"connected_clients", stats.ConnectedClients,
		"uptime_days", stats.UptimeDays)
}
