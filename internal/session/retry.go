package session

import (
	"context"
	"time"
)

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// SaveWithRetry attempts a store save up to attempts times with capped
// exponential backoff between tries. The last error is returned when
// every attempt fails.
func SaveWithRetry(ctx context.Context, store Store, sess *Session, attempts int, base, cap time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := store.Save(ctx, sess); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(i, base, cap)):
		}
	}
	return lastErr
}
