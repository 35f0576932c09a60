package util

import (
	"context"
	"errors"
)

// RetryErrWithContext calls fn up to maxTries times until it returns nil.
// If maxTries <= 0, it defaults to 1. Returns the last error if all attempts fail.
// Context cancellation aborts immediately and is never retried.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
