package errors

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerSettings configures when a CircuitBreaker trips and how it recovers.
type BreakerSettings struct {
	// FailureRatio trips the breaker once reached over at least MinRequests calls.
	FailureRatio float64
	MinRequests  int
	// OpenTimeout is how long the breaker rejects calls before probing again.
	OpenTimeout time.Duration
	// HalfOpenProbes successful probes close the breaker again.
	HalfOpenProbes int
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRatio:   0.5,
		MinRequests:    10,
		OpenTimeout:    30 * time.Second,
		HalfOpenProbes: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for a while.
type CircuitBreaker struct {
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	total    int
	openedAt time.Time
	inFlight int
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	defaults := DefaultBreakerSettings()
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = defaults.FailureRatio
	}
	if settings.MinRequests <= 0 {
		settings.MinRequests = defaults.MinRequests
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.HalfOpenProbes <= 0 {
		settings.HalfOpenProbes = defaults.HalfOpenProbes
	}

	return &CircuitBreaker{settings: settings, now: time.Now}
}

// Call runs fn unless the breaker is open. Errors from fn are returned as is.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.failures, cb.total, cb.inFlight = 0, 0, 0
	}

	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.settings.HalfOpenProbes {
			return ErrCircuitOpen
		}
		cb.inFlight++
	}

	return nil
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.total++
	if !ok {
		cb.failures++
	}

	switch cb.state {
	case StateHalfOpen:
		if !ok {
			cb.trip()
			return
		}
		if cb.total-cb.failures >= cb.settings.HalfOpenProbes {
			cb.state = StateClosed
			cb.failures, cb.total, cb.inFlight = 0, 0, 0
		}
	case StateClosed:
		if cb.total >= cb.settings.MinRequests &&
			float64(cb.failures)/float64(cb.total) >= cb.settings.FailureRatio {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures, cb.total, cb.inFlight = 0, 0, 0
}
