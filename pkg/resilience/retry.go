package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines caller-level retry behavior for transient failures.
// Sessions never reconnect on their own; callers wrap Connect with a policy
// when they want a second attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	// Retryable decides whether an error deserves another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds, the error is not retryable, retries are
// exhausted, or ctx is done. Backoff doubles after every failed attempt.
func (r RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	backoff := r.Backoff
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if i == r.MaxRetries || (r.Retryable != nil && !r.Retryable(err)) {
			return err
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}
