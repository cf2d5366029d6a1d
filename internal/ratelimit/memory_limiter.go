package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps sliding windows in process. It is the only backend
// without Redis and the fallback when Redis fails.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	log     *slog.Logger
	now     func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		log:     log,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	events := trimBefore(m.windows[key], now.Add(-window))

	if len(events) >= limit {
		m.windows[key] = events
		reset := now.Add(window)
		if len(events) > 0 {
			reset = events[0].Add(window)
		}
		return &Result{ResetAt: reset}, ErrLimitExceeded
	}

	events = append(events, now)
	m.windows[key] = events
	return &Result{
		Allowed:   true,
		Remaining: limit - len(events),
		ResetAt:   events[0].Add(window),
	}, nil
}

// Cleanup forgets keys whose newest event is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for key, events := range m.windows {
		if len(events) == 0 || events[len(events)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// trimBefore drops the events at or before start. Events are in
// ascending order.
func trimBefore(events []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(events) && !events[i].After(start) {
		i++
	}
	if i == 0 {
		return events
	}
	return append(events[:0], events[i:]...)
}
