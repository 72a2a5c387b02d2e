package service

import (
	"context"
	"time"
)

// Schedule runs the reconciler every interval until ctx is done. Failures
// are logged and counted by Run; the loop keeps going.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reconciliation scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Run(ctx, RunOptions{}); err != nil {
				s.logger.WarnContext(ctx, "scheduled reconciliation did not complete", "error", err)
			}
		}
	}
}
