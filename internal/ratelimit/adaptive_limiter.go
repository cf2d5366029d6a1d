package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_ratelimit_checks_total",
		Help: "Rate limit checks by backend and outcome.",
	}, []string{"backend", "result"})

	backendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_ratelimit_redis_errors_total",
		Help: "Redis failures that forced the in-memory fallback.",
	})
)

// AdaptiveLimiter prefers the shared Redis windows. While Redis is failing
// each replica enforces half the limit locally, so a fleet of two stays
// close to the configured rate.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil || errors.Is(err, ErrLimitExceeded) {
		checksTotal.WithLabelValues("redis", outcome(err)).Inc()
		return result, err
	}

	backendErrorsTotal.Inc()
	a.log.WarnContext(ctx, "redis limiter failed, using in-memory fallback", slog.String("key", key), slog.Any("error", err))

	result, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	checksTotal.WithLabelValues("memory", outcome(err)).Inc()
	return result, err
}

func outcome(err error) string {
	if err != nil {
		return "rejected"
	}
	return "allowed"
}
