// Package retry re-runs an operation while its failures are transient.
package retry

import (
	"context"
	"time"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 5

// DefaultBackoffStep is the linear backoff unit.
const DefaultBackoffStep = 100 * time.Millisecond

// Policy decides whether and when an operation is attempted again.
type Policy struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries int

	// IsRetryable classifies an error. Nil means IsRetryableTransport.
	IsRetryable func(err error) bool

	// Backoff returns the wait after the given failed attempt.
	// Nil means LinearBackoff(DefaultBackoffStep).
	Backoff func(attempt int, err error) time.Duration

	// OnRetry is called before each wait. Optional.
	OnRetry func(attempt int, err error)

	// Gate is waited on before every attempt. Optional.
	Gate Waiter
}

// Waiter blocks until an action may proceed, like (*rate.Limiter).Wait.
type Waiter interface {
	Wait(ctx context.Context) error
}

// LinearBackoff waits attempt*step after the given attempt.
func LinearBackoff(step time.Duration) func(attempt int, err error) time.Duration {
	return func(attempt int, _ error) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Do runs op until it succeeds, fails with a non-retryable error or
// MaxRetries retries have been made. The last error is returned as is.
// Attempts are numbered from 1; the number made is returned with the result.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	isRetryable := p.IsRetryable
	if isRetryable == nil {
		isRetryable = IsRetryableTransport
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff(DefaultBackoffStep)
	}

	var zero T
	for attempt := 1; ; attempt++ {
		if p.Gate != nil {
			if err := p.Gate.Wait(ctx); err != nil {
				return zero, attempt - 1, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, attempt, nil
		}
		if attempt > p.MaxRetries || !isRetryable(err) || ctx.Err() != nil {
			return zero, attempt, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if wait := backoff(attempt, err); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
}
