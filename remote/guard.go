package remote

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// guard runs one logical call as a series of bounded attempts.
type guard struct {
	timeout time.Duration
	retry   RetryConfig

	// onRetry is called before each retry wait.
	onRetry func(attempt int, err error, wait time.Duration)
}

// run calls op until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last attempt's error is returned.
func (g guard) run(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		err := g.attempt(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt >= g.retry.MaxAttempts {
			break
		}

		wait := g.backoff(attempt)
		if g.onRetry != nil {
			g.onRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func (g guard) attempt(ctx context.Context, op func(context.Context) error) error {
	if g.timeout <= 0 {
		return op(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := op(actx)
	// Only our own deadline is a timeout; the caller's is passed through.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

func (g guard) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(g.retry.InitialDelay) * math.Pow(g.retry.Multiplier, float64(attempt-1)))
	if wait > g.retry.MaxDelay {
		wait = g.retry.MaxDelay
	}
	if g.retry.Jitter && wait >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		wait += time.Duration(rand.Int64N(int64(wait / 4)))
	}
	return wait
}

// retryable reports whether a failed attempt is worth repeating.
func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
