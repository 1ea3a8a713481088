package retry

import (
	"context"
	"fmt"
	"testing"
)

func TestRetry(t *testing.T) {
	const tries = 5
	t.Run("error", func(t *testing.T) {
		var i int
		err := Retry(context.Background(), &ZeroBackoff{}, func() error {
			i++
			if i == tries {
				return nil
			}
			return fmt.Errorf("try %d", i)
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if i != tries {
			t.Errorf("invalid number of tries: %d", i)
		}
	})
	t.Run("cancel", func(t *testing.T) {
		var i int
		ctx, cancel := context.WithCancel(context.Background())
		err := Retry(ctx, &ZeroBackoff{}, func() error {
			i++
			if i == tries {
				cancel()
			}
			return fmt.Errorf("try %d", i)
		})

		if err == nil {
			t.Error("error is nil")
		}
		if err.Error() != "try 5" {
			t.Errorf("unexpected error: %v", err)
		}
		if i != tries {
			t.Errorf("invalid number of tries: %d", i)
		}
	})
	t.Run("max retries", func(t *testing.T) {
		var i int
		err := Retry(context.Background(), WithMaxRetries(&ZeroBackoff{}, 3), func() error {
			i++
			return fmt.Errorf("try %d", i)
		})
		if err == nil {
			t.Error("expected an error once retries are exhausted")
		}
		if i != 4 {
			t.Errorf("expected 1 initial call + 3 retries = 4 calls, got %d", i)
		}
	})
}
