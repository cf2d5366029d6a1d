package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

var (
	ErrNotReady     = errors.New("service is not ready")
	ErrShuttingDown = errors.New("service is shutting down")
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes reports ready once startup finished and until shutdown begins.
// Readiness additionally requires deps to pass when it is set.
type Probes struct {
	log      *slog.Logger
	ready    atomic.Bool
	draining atomic.Bool
	deps     func(ctx context.Context) error
}

// NewProbes creates a new Probes instance. deps may be nil.
func NewProbes(deps func(ctx context.Context) error, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, deps: deps}
}

// MarkReady flips readiness on after startup.
func (p *Probes) MarkReady() {
	p.ready.Store(true)
	p.log.Info("service marked ready")
}

// MarkDraining flips readiness off at the start of shutdown.
func (p *Probes) MarkDraining() {
	p.draining.Store(true)
}

// Liveness fails only while draining.
func (p *Probes) Liveness(context.Context) error {
	if p.draining.Load() {
		return ErrShuttingDown
	}
	return nil
}

func (p *Probes) Readiness(ctx context.Context) error {
	switch {
	case p.draining.Load():
		return ErrShuttingDown
	case !p.ready.Load():
		return ErrNotReady
	case p.deps != nil:
		if err := p.deps(ctx); err != nil {
			p.log.Debug("readiness dependency check failed", slog.Any("error", err))
			return err
		}
	}
	return nil
}
