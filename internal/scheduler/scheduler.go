package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker is the unit of work the driver fires on each interval.
// engage.Engine implements this (method: RunTick).
type Ticker interface {
	RunTick(ctx context.Context)
}

// Scheduler wakes on a fixed interval and runs one full evaluation pass.
// There is no sub-tick scheduling; everything time-of-day sensitive is
// decided inside the evaluators.
type Scheduler struct {
	engine   Ticker
	log      *zap.Logger
	interval time.Duration
}

// New creates a Scheduler. The production interval is 15 minutes.
func New(engine Ticker, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{engine: engine, log: log, interval: interval}
}

// Run loops until ctx is canceled. In-flight evaluations finish or abort
// through their own per-user contexts.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.engine.RunTick(ctx)
		}
	}
}
