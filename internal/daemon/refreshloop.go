package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/traykeep/traykeep/internal/tray"
)

// RefreshLoopConfig holds configuration for the periodic refresh loop.
type RefreshLoopConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// RefreshLoop periodically re-captures the strip so icons that appear,
// vanish or shuffle outside traykeep's control still converge into the
// persisted layout.
type RefreshLoop struct {
	interval   time.Duration
	controller *Controller
	logger     *slog.Logger
}

// NewRefreshLoop creates a refresh loop over the controller.
func NewRefreshLoop(cfg RefreshLoopConfig, controller *Controller) *RefreshLoop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &RefreshLoop{
		interval:   interval,
		controller: controller,
		logger:     cfg.Logger,
	}
}

// Run starts the refresh loop. Blocks until context is cancelled.
func (r *RefreshLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("refresh loop started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh performs a single pass.
func (r *RefreshLoop) refresh() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("refresh loop panic recovered", "error", err)
		}
	}()

	if err := r.controller.Refresh(); err != nil {
		// An overlapping interactive capture is expected contention, not
		// a fault; this pass simply yields.
		if errors.Is(err, tray.ErrCaptureBusy) {
			r.logger.Debug("refresh skipped, capture in flight")
			return
		}
		r.logger.Error("periodic refresh failed", "error", err)
	}
}
