package httputil

import (
	"context"
	"errors"
	"time"
)

// MaxDelay caps the wait between two attempts.
const MaxDelay = 30 * time.Second

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times. Only errors wrapped in
// [RetryableError] are retried; the delay doubles after each failure and
// never exceeds MaxDelay. It returns the last error, or ctx.Err() when the
// context ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				delay = min(delay*2, MaxDelay)
			}
		}
	}
	return lastErr
}

// IsRetryable reports whether err is marked as transient.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
