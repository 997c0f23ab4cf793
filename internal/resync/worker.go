package resync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/models"
)

// Rebuilder rewrites one domain sheet from the primary store
type Rebuilder interface {
	Rebuild(ctx context.Context, domain models.Domain) error
}

// Initializer is the synchronizer lifecycle the worker retries
type Initializer interface {
	Initialized() bool
	Init(ctx context.Context) error
}

// Worker periodically rebuilds every domain sheet, repairing writes lost to sync failures
type Worker struct {
	rebuilder Rebuilder
	sync      Initializer
	domains   []models.Domain
	interval  time.Duration
}

// NewWorker creates a rebuild worker. sync may be nil.
func NewWorker(rebuilder Rebuilder, sync Initializer, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Worker{
		rebuilder: rebuilder,
		sync:      sync,
		domains:   models.Domains,
		interval:  interval,
	}
}

// Start begins the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// run is the main loop for the rebuild worker
func (w *Worker) run(ctx context.Context) {
	slog.Info("resync worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on start
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("resync worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce rebuilds every domain and returns how many succeeded
func (w *Worker) RunOnce(ctx context.Context) int {
	slog.Debug("running resync cycle")

	if w.sync != nil && !w.sync.Initialized() {
		if err := w.sync.Init(ctx); err != nil {
			slog.Debug("synchronizer still unavailable, skipping resync", "error", err)
			return 0
		}
	}

	synced := 0
	for _, domain := range w.domains {
		if ctx.Err() != nil {
			return synced
		}

		if err := w.rebuilder.Rebuild(ctx, domain); err != nil {
			if errors.Is(err, leaderboard.ErrNotInitialized) {
				slog.Debug("synchronizer not initialized, skipping resync")
				return synced
			}
			slog.Error("failed to rebuild leaderboard sheet", "domain", domain, "error", err)
			continue
		}
		synced++
	}

	slog.Info("resync cycle finished", "domains", synced)
	return synced
}
