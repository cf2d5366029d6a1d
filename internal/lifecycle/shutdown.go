package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Shutdown phases. Every hook of a phase returns before the next phase
// starts.
const (
	PhaseIngress = iota
	PhaseWorkers
	PhaseStorage
)

// Hook is a named shutdown step.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown runs hooks phase by phase. Hooks of one phase run in parallel
// and a failing hook does not stop later phases.
type Shutdown struct {
	mu     sync.Mutex
	phases map[int][]Hook
	log    *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{phases: make(map[int][]Hook), log: log}
}

func (s *Shutdown) Register(name string, phase int, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[phase] = append(s.phases[phase], Hook{Name: name, Fn: fn})
}

// Execute runs all phases in ascending order and joins hook errors.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	order := make([]int, 0, len(s.phases))
	plan := make(map[int][]Hook, len(s.phases))
	for phase, hooks := range s.phases {
		order = append(order, phase)
		plan[phase] = slices.Clone(hooks)
	}
	s.mu.Unlock()
	slices.Sort(order)

	start := time.Now()
	s.log.Info("shutdown started", slog.Int("phases", len(order)))

	var errs []error
	for _, phase := range order {
		errs = append(errs, s.run(ctx, phase, plan[phase])...)
	}

	s.log.Info("shutdown finished", slog.Duration("elapsed", time.Since(start)), slog.Int("failed_hooks", len(errs)))
	return errors.Join(errs...)
}

func (s *Shutdown) run(ctx context.Context, phase int, hooks []Hook) []error {
	results := make([]error, len(hooks))

	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			began := time.Now()
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Int("phase", phase), slog.Any("error", err))
				results[i] = fmt.Errorf("%s: %w", h.Name, err)
				return
			}
			s.log.Debug("shutdown hook done", slog.String("hook", h.Name), slog.Duration("elapsed", time.Since(began)))
		}()
	}
	wg.Wait()

	var failed []error
	for _, err := range results {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}
