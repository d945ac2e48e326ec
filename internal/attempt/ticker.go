package attempt

import (
	"context"
	"time"
)

// Run ticks s once per interval until the attempt finishes or is closed, or
// ctx is cancelled.
func Run(ctx context.Context, s *Session, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			return nil
		case <-t.C:
			finished, err := s.Tick(ctx)
			if err != nil {
				return err
			}
			if finished {
				return nil
			}
		}
	}
}
