package app

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// jitterRangeMultiplier converts rand [0,1) to [-1,1) for symmetric jitter.
const jitterRangeMultiplier = 2

// RetryPolicy governs re-running a transaction that failed with a conflict.
// Only domain.ErrConflict is retried; every other error returns immediately.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// DefaultRetryPolicy returns three attempts with a short jittered backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.25,
	}
}

// backoff returns the wait before the given retry (1-based).
// Uses exponential backoff with jitter.
func (p RetryPolicy) backoff(retry int) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := float64(p.InitialInterval) * math.Pow(multiplier, float64(retry-1))

	if p.MaxInterval > 0 && backoff > float64(p.MaxInterval) {
		backoff = float64(p.MaxInterval)
	}

	jitterMultiplier := rand.Float64()*jitterRangeMultiplier - 1 //nolint:gosec // No need for crypto-grade randomness
	backoff += backoff * p.JitterFactor * jitterMultiplier

	return time.Duration(backoff)
}

// retryOnConflict runs fn until it returns something other than a conflict or
// the attempts are exhausted, in which case the last conflict is returned.
// onRetry is called before every re-run.
func retryOnConflict[T any](
	ctx context.Context,
	policy RetryPolicy,
	onRetry func(retry int, backoff time.Duration, err error),
	fn func(context.Context) (T, error),
) (T, error) {
	var (
		zero    T
		lastErr error
	)

	attempts := max(policy.MaxAttempts, 1)

	for attempt := range attempts {
		if attempt > 0 {
			wait := policy.backoff(attempt)
			if onRetry != nil {
				onRetry(attempt, wait, lastErr)
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !domain.IsConflict(err) {
			return zero, err
		}

		lastErr = err
	}

	return zero, lastErr
}
