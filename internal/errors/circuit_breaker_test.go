package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(BreakerSettings{FailureRatio: 0.5, MinRequests: 4, OpenTimeout: time.Minute, HalfOpenProbes: 2})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(BreakerSettings{MinRequests: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("fail again") })
	assert.Equal(t, StateOpen, cb.State())
}
