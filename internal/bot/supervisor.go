package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/rewards-bot/internal/audit"
)

var errPollingStopped = errors.New("update loop stopped")

// Runner is the update loop driven by a Supervisor.
type Runner interface {
	Start()
	Stop()
}

// Supervisor keeps the update loop alive. When the loop panics or exits
// on its own it reports to the audit sink, waits for the backoff and
// starts a fresh runner from build.
type Supervisor struct {
	build   func() (Runner, error)
	backoff time.Duration
	sink    audit.Sink
	log     *slog.Logger
}

func NewSupervisor(build func() (Runner, error), backoff time.Duration, sink audit.Sink, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	if backoff <= 0 {
		backoff = 15 * time.Second
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Supervisor{build: build, backoff: backoff, sink: sink, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		runner, err := s.build()
		if err == nil {
			err = s.runOnce(ctx, runner)
		}
		if ctx.Err() != nil {
			return nil
		}

		s.log.ErrorContext(ctx, "bot crashed, restarting",
			slog.Duration("backoff", s.backoff),
			slog.Any("error", err),
		)
		s.sink.LogEvent(ctx, audit.KindError, fmt.Sprintf("Bot crashed: %v. Restarting in %s.", err, s.backoff), nil)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, runner Runner) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		runner.Start()
		done <- errPollingStopped
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		runner.Stop()
		<-done
		return nil
	}
}
