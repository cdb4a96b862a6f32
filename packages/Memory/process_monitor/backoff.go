package process_monitor

import (
	"context"
	"time"
)

// eventRetryDelay is how long WaitForProcess waits after a failed NextEvent
// before asking again.
const eventRetryDelay = 500 * time.Millisecond

// pause sleeps for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
