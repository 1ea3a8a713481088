package retry

import (
	"context"
	"time"
)

// Retry calls fn until it returns nil, the context is done, or backoff
// reports Stop. The error from the final call to fn is returned, also when
// the context is what ended the loop.
func Retry(ctx context.Context, backoff Backoff, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return err
		default:
		}

		delay := backoff.Next()
		if delay == Stop {
			return err
		}

		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
