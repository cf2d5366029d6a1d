package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryPolicy_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 3, Backoff: ConstantBackoff(time.Millisecond)}

	err := WithRetryPolicy(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return NewPersistenceError("test", errors.New("busy"), true)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryPolicy_StopsOnPreconditionFailure(t *testing.T) {
	sentinel := NewPrecondition("E299", "nope", "nope")
	calls := 0

	err := WithRetryPolicy(context.Background(), RetryPolicy{MaxRetries: 5, Backoff: ConstantBackoff(time.Millisecond)}, func() error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWithRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetryPolicy(context.Background(), RetryPolicy{MaxRetries: 2, Backoff: ConstantBackoff(time.Millisecond)}, func() error {
		calls++
		return NewPersistenceError("test", errors.New("busy"), true)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, KindPersistence, KindOf(err))
}

func TestWithRetryPolicy_CustomRetryable(t *testing.T) {
	calls := 0
	plain := errors.New("download failed")
	policy := RetryPolicy{
		MaxRetries: 2,
		Backoff:    ConstantBackoff(time.Millisecond),
		Retryable:  func(error) bool { return true },
	}

	err := WithRetryPolicy(context.Background(), policy, func() error {
		calls++
		return plain
	})

	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoffIsBounded(t *testing.T) {
	assert.Equal(t, InitialBackoff, ExponentialBackoff(1))
	assert.Equal(t, 2*InitialBackoff, ExponentialBackoff(2))
	assert.Equal(t, MaxBackoff, ExponentialBackoff(30))
}

func TestAppErrorIsMatchesByCode(t *testing.T) {
	sentinel := NewNotFound("E101", "user not found", "")
	wrapped := sentinel.WithCause(errors.New("row missing"))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewNotFound("E102", "platform not found", ""))
	assert.True(t, IsUserFacing(wrapped))
	assert.False(t, IsUserFacing(NewPersistenceError("x", nil, false)))
}
