package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// unverifiedGrace is how long an unverified account survives before the
// periodic sweep removes it.
const unverifiedGrace = 24 * time.Hour

// StartCleanup runs the unverified-account sweep on a fixed interval until the
// context is cancelled. It blocks, so callers run it on its own goroutine.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			now := s.now()
			deleted, err := s.repo.DeleteExpiredUnverified(ctx, now.Add(-unverifiedGrace), now)
			if err != nil {
				s.logger.Error("sweep unverified accounts", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("swept unverified accounts", zap.Int64("deleted", deleted))
			}
		}
	}
}
