package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ExpiredTokenPruner drops consumed refresh token records that can no
// longer matter. The sqlite store and MemoryLedger implement it; the redis
// ledger expires its keys on its own.
type ExpiredTokenPruner interface {
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

// HousekeepingService periodically prunes the refresh token ledger so it
// does not grow without bound.
type HousekeepingService struct {
	Pruner   ExpiredTokenPruner
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// NewHousekeepingService creates a housekeeping service. If interval is 0
// or negative, it defaults to 1 hour.
func NewHousekeepingService(pruner ExpiredTokenPruner, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Pruner:   pruner,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished. It is a no-op
// for a service that was never started.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if !s.started.Load() {
		return
	}
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	n, err := s.Pruner.DeleteExpiredRefreshTokens(ctx, s.Now())
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		return
	}
	s.Logger.Info("housekeeping cleanup completed", "deleted_refresh_tokens", n)
}
