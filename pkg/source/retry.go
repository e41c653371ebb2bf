package source

import (
	"context"
	"time"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Dial retry defaults used when [Options] leaves them zero.
const (
	DefaultDialAttempts = 3
	DefaultDialDelay    = 500 * time.Millisecond
)

// Retry runs fn up to attempts times, doubling delay after each failure.
// Only unavailable errors are retried; anything else is returned at once.
// A cancelled ctx ends the wait with an unavailable error.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errs.IsUnavailable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return errs.Unavailable(ctx.Err(), "gave up after %d attempts", i+1)
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// dial runs connect with the retry policy in opts.
func dial[T any](ctx context.Context, opts Options, connect func() (T, error)) (T, error) {
	attempts, delay := opts.DialAttempts, opts.DialDelay
	if attempts == 0 {
		attempts = DefaultDialAttempts
	}
	if delay == 0 {
		delay = DefaultDialDelay
	}
	var out T
	err := Retry(ctx, attempts, delay, func() error {
		v, err := connect()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
