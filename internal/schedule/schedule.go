package schedule

import (
	"context"
	"time"
)

// RunAt executes fn in its own goroutine once runAt arrives. A runAt
// in the past executes immediately. Cancelling ctx before the deadline
// abandons the run without calling fn.
func RunAt(ctx context.Context, runAt time.Time, fn func(ctx context.Context)) {
	go func() {
		if delay := time.Until(runAt); delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}
