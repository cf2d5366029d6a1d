package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/testutil"
)

type recordingSink struct {
	mu    sync.Mutex
	kinds []audit.Kind
}

func (s *recordingSink) LogEvent(_ context.Context, kind audit.Kind, _ string, _ *audit.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kinds)
}

type panickyRunner struct{}

func (panickyRunner) Start() { panic("boom") }
func (panickyRunner) Stop()  {}

type blockingRunner struct {
	stop chan struct{}
}

func (r *blockingRunner) Start() { <-r.stop }
func (r *blockingRunner) Stop()  { close(r.stop) }

func TestSupervisorRestartsAfterPanic(t *testing.T) {
	var builds atomic.Int32
	started := make(chan struct{})
	build := func() (Runner, error) {
		if builds.Add(1) == 1 {
			return panickyRunner{}, nil
		}
		close(started)
		return &blockingRunner{stop: make(chan struct{})}, nil
	}

	sink := &recordingSink{}
	s := NewSupervisor(build, 10*time.Millisecond, sink, testutil.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("runner was not restarted")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	assert.Equal(t, int32(2), builds.Load())
	assert.Equal(t, 1, sink.count())
}

func TestSupervisorStopsCleanlyOnCancel(t *testing.T) {
	runner := &blockingRunner{stop: make(chan struct{})}
	s := NewSupervisor(func() (Runner, error) { return runner, nil }, time.Second, nil, testutil.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
