package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStateNotFound     = errors.New("user state not found")
	// ErrStateLocked is returned while another update of the same user
	// is changing the dialog.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder installs an observer for accepted transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		recorder = func(string, string) {}
	}
	transitionRecorder = recorder
}

// Storage persists one dialog per user.
type Storage interface {
	// Load returns ErrStateNotFound when the user has no dialog.
	Load(ctx context.Context, userID int64) (*UserState, error)
	Save(ctx context.Context, st *UserState) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*UserState, error)
}

// StateMachine is the dialog controller used by handlers.
type StateMachine interface {
	// Current returns the stored dialog or idle when there is none.
	Current(ctx context.Context, userID int64) (*UserState, error)
	TransitionTo(ctx context.Context, userID int64, next State, data map[string]interface{}) error
	ClearState(ctx context.Context, userID int64) error
	Snapshot(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	locks   locker
	log     *slog.Logger
}

// NewStateMachine returns a controller over storage. With a Redis client
// the per-user lock is shared between replicas; without one it is local.
func NewStateMachine(storage Storage, log *slog.Logger, client *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	var locks locker = newLocalLocker()
	if client != nil {
		locks = redisLocker{client: client}
	}

	return &machine{storage: storage, locks: locks, log: log}
}

func (m *machine) Current(ctx context.Context, userID int64) (*UserState, error) {
	st, err := m.storage.Load(ctx, userID)
	switch {
	case errors.Is(err, ErrStateNotFound), err == nil && st == nil:
		return &UserState{UserID: userID, CurrentState: StateIdle}, nil
	case err != nil:
		return nil, err
	}
	return st, nil
}

func (m *machine) Snapshot(ctx context.Context) ([]*UserState, error) {
	return m.storage.List(ctx)
}

// TransitionTo moves the dialog to next when allowed. Idle is stored as
// the absence of a record.
func (m *machine) TransitionTo(ctx context.Context, userID int64, next State, data map[string]interface{}) error {
	return m.withLock(ctx, userID, func() error {
		cur, err := m.Current(ctx, userID)
		if err != nil {
			return err
		}

		if !cur.CurrentState.CanTransition(next) {
			m.log.Warn("invalid state transition",
				slog.Int64("user_id", userID),
				slog.String("from", string(cur.CurrentState)),
				slog.String("to", string(next)),
			)
			return ErrInvalidTransition
		}
		transitionRecorder(string(cur.CurrentState), string(next))

		if next == StateIdle {
			return m.storage.Delete(ctx, userID)
		}
		return m.storage.Save(ctx, &UserState{UserID: userID, CurrentState: next, Context: data})
	})
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.withLock(ctx, userID, func() error {
		return m.storage.Delete(ctx, userID)
	})
}

func (m *machine) withLock(ctx context.Context, userID int64, fn func() error) error {
	unlock, err := m.locks.lock(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateLocked) {
			m.log.Warn("dialog lock already held", slog.Int64("user_id", userID))
		}
		return err
	}
	defer func() {
		// The lock expires on its own if release fails.
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			m.log.Error("failed to release dialog lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}()

	return fn()
}
