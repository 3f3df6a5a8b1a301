package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives the orchestrator from a periodic tick on a single control
// goroutine. Ticks that land while a cycle is still running are coalesced by
// the orchestrator's cycle lock.
type Runner struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *slog.Logger
	stop         chan struct{}
}

// NewRunner returns a ticker-driven cycle runner.
func NewRunner(orchestrator *Orchestrator, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{orchestrator: orchestrator, interval: interval, logger: logger}
}

// Start begins ticking. The first cycle runs immediately so a restart
// catches missed windows without waiting a full interval.
func (r *Runner) Start(ctx context.Context) error {
	if r.stop != nil {
		return nil
	}

	r.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.runOnce(ctx)
		for {
			select {
			case <-ticker.C:
				r.runOnce(ctx)
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (r *Runner) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	r.stop = nil
	return nil
}

func (r *Runner) runOnce(ctx context.Context) {
	if err := r.orchestrator.RunCycle(ctx); err != nil {
		if r.logger != nil {
			r.logger.Error("cycle failed, state unchanged, retrying next tick", "error", err)
		}
	}
}
