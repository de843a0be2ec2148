package service

import (
	"context"
	"log/slog"
	"time"

	"authbroker/internal/handshake/metrics"
	"authbroker/internal/handshake/store"
)

// Sweeper periodically evicts handshake records whose retention window has
// passed, bounding memory growth from abandoned handshakes.
type Sweeper struct {
	store    store.Store
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewSweeper(handshakeStore store.Store, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:    handshakeStore,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. It returns
// nil on cancellation so it composes cleanly with an errgroup shutdown.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			deleted, err := s.store.DeleteExpired(ctx, now)
			if err != nil {
				s.logger.Error("handshake sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.metrics.AddExpired(deleted)
				s.logger.Info("swept expired handshakes", "deleted", deleted)
			}
		}
	}
}
