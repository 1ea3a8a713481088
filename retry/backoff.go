// Package retry provides small backoff strategies and a retry loop, used as
// the per-request retry budget the link state machine consumes and by
// sbusctl's polling waits.
package retry

import "time"

// Stop is returned by Backoff.Next to signal that no further retries should
// be attempted.
const Stop time.Duration = -1

// Backoff computes the delay to wait before the next attempt.
type Backoff interface {
	// Next returns the duration to sleep before the next attempt, or Stop
	// if no more attempts should be made.
	Next() time.Duration
}

// ZeroBackoff retries immediately, with no delay between attempts.
type ZeroBackoff struct{}

// Next always returns 0.
func (ZeroBackoff) Next() time.Duration { return 0 }

// ConstantBackoff retries after the same fixed delay every time.
type ConstantBackoff struct {
	delay time.Duration
}

// NewConstantBackoff returns a Backoff that always waits d between attempts.
func NewConstantBackoff(d time.Duration) *ConstantBackoff {
	return &ConstantBackoff{delay: d}
}

// Next returns the configured delay.
func (b *ConstantBackoff) Next() time.Duration { return b.delay }

// maxRetriesBackoff wraps another Backoff and stops after a fixed number of
// attempts, regardless of what the wrapped Backoff would have returned.
type maxRetriesBackoff struct {
	underlying Backoff
	remaining  int
}

// WithMaxRetries wraps b so that it reports Stop after n more calls to Next.
func WithMaxRetries(b Backoff, n int) Backoff {
	return &maxRetriesBackoff{underlying: b, remaining: n}
}

// Next delegates to the wrapped Backoff until the retry budget is exhausted.
func (b *maxRetriesBackoff) Next() time.Duration {
	if b.remaining <= 0 {
		return Stop
	}
	b.remaining--
	return b.underlying.Next()
}
