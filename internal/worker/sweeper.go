package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper periodically expires stale pending tickets. It is the only source
// of penalties; every client countdown is a pure display computation over the
// server-authoritative fields.
type Sweeper struct {
	engine   sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs the background task.
func NewSweeper(engine sweeper, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{engine: engine, interval: interval, logger: logger}
}

// Run blocks until the context is cancelled, triggering a sweep pass every
// interval. Per-ticket failures are handled inside the engine; a failed pass
// is logged and the next tick proceeds.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	expired, err := s.engine.Sweep(ctx)
	if err != nil {
		s.logger.Error("sweep pass failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("sweep pass expired tickets", zap.Int("count", expired))
	}
}
