package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanentError marks an error that another attempt cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls op up to 1+retries times and waits backoff(i) before attempt
// i. A nil backoff means Backoff. It stops on success, on an error wrapped
// with Permanent, or when ctx is done. Returned errors are prefixed with name.
func Retry(ctx context.Context, name string, retries int, backoff func(int) time.Duration, op func(context.Context) error) error {
	if backoff == nil {
		backoff = Backoff
	}

	var lastErr error
	attempts := 1 + max(retries, 0)

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}
		if i > 0 {
			if err := sleep(ctx, backoff(i)); err != nil {
				return fmt.Errorf("%s: context canceled during backoff: %w", name, err)
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("%s: %w", name, perm.err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
