// Package retry wraps outbound calls with exponential backoff.
//
// An operation is attempted up to MaxRetries+1 times. Between attempts the engine
// sleeps for a capped exponential delay, but only when the failure is classified
// as retryable: network and timeout failures, API errors with a listed status, or
// anything the caller's ShouldRetry predicate approves. Validation and cancellation
// failures always propagate on first occurrence.
package retry

import (
	"context"
	"math"
	"slices"
	"time"

	apperrors "dbrevel/cli/internal/errors"
)

// Policy controls attempts and delays.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the base delay before the first retry.
	RetryDelay time.Duration
	// MaxRetryDelay caps every computed delay.
	MaxRetryDelay time.Duration
	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64
	// RetryableStatusCodes lists HTTP statuses eligible for retry.
	RetryableStatusCodes []int
	// RetryableKinds lists non-HTTP failure classes eligible for retry.
	RetryableKinds []apperrors.Kind
	// ShouldRetry overrides the default classification when set.
	// attempt is the 1-based number of the attempt that just failed.
	ShouldRetry func(err error, attempt int) bool
	// OnRetry observes each scheduled retry before the sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the stock retry settings.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:           3,
		RetryDelay:           time.Second,
		MaxRetryDelay:        10 * time.Second,
		BackoffMultiplier:    2,
		RetryableStatusCodes: []int{500, 502, 503, 504},
		RetryableKinds:       []apperrors.Kind{apperrors.Network, apperrors.Timeout},
	}
}

// Delay returns the sleep before retry n (1-based):
// min(RetryDelay * BackoffMultiplier^(n-1), MaxRetryDelay).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.RetryDelay <= 0 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.RetryDelay) * math.Pow(mult, float64(n-1))
	if p.MaxRetryDelay > 0 && d > float64(p.MaxRetryDelay) {
		return p.MaxRetryDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Retryable reports whether err, raised by the given attempt, may be retried.
func (p Policy) Retryable(err error, attempt int) bool {
	if err == nil {
		return false
	}
	kind, known := apperrors.KindOf(err)
	if known && (kind == apperrors.Validation || kind == apperrors.Cancelled) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err, attempt)
	}
	if !known {
		return false
	}
	if kind == apperrors.API {
		return slices.Contains(p.RetryableStatusCodes, apperrors.StatusOf(err))
	}
	return slices.Contains(p.RetryableKinds, kind)
}

// Do runs op until it succeeds, fails with a non-retryable error, or attempts
// run out. The most recent error is returned unchanged. Cancellation of ctx
// stops the loop promptly and surfaces as a Cancelled error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, apperrors.NewCancelled(err)
		}

		out, err := op(ctx, attempt)
		if err == nil {
			return out, nil
		}
		if attempt >= maxAttempts || !p.Retryable(err, attempt) {
			return zero, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, apperrors.NewCancelled(err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
