package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	MaxRetries        = 3
	InitialBackoff    = 50 * time.Millisecond
	MaxBackoff        = 2 * time.Second
	BackoffMultiplier = 2.0
)

// Backoff returns the pause before the given retry attempt (1-based).
type Backoff func(attempt int) time.Duration

// RetryPolicy bounds a retry loop. Retryable decides which errors are worth
// another attempt; nil means IsRetryable.
type RetryPolicy struct {
	MaxRetries int
	Backoff    Backoff
	Retryable  func(error) bool
}

// DefaultPolicy retries AppErrors flagged as retryable with exponential backoff.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: MaxRetries,
		Backoff:    ExponentialBackoff,
		Retryable:  IsRetryable,
	}
}

// ConstantBackoff pauses for d between every attempt.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

func ExponentialBackoff(attempt int) time.Duration {
	delay := float64(InitialBackoff) * math.Pow(BackoffMultiplier, float64(attempt-1))
	backoff := time.Duration(delay)
	if backoff > MaxBackoff {
		return MaxBackoff
	}

	return backoff
}

func WithRetry(ctx context.Context, fn func() error) error {
	return WithRetryPolicy(ctx, DefaultPolicy(), fn)
}

// WithRetryPolicy runs fn until it succeeds, returns a non-retryable error,
// the policy is exhausted or ctx is done.
func WithRetryPolicy(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	backoff := policy.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !retryable(err) || attempt == policy.MaxRetries {
			return err
		}

		timer := time.NewTimer(backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	return err
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}
