package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type storageMock struct {
	mock.Mock
}

func (m *storageMock) Load(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*UserState)
	return st, args.Error(1)
}

func (m *storageMock) Save(ctx context.Context, st *UserState) error {
	return m.Called(ctx, st).Error(0)
}

func (m *storageMock) Delete(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *storageMock) List(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTransitionTo(t *testing.T) {
	const user = int64(42)

	tests := []struct {
		name    string
		stored  *UserState
		loadErr error
		next    State
		expect  func(ms *storageMock)
		wantErr error
	}{
		{
			name:   "idle starts a review",
			stored: nil, loadErr: ErrStateNotFound,
			next: StateAwaitingReview,
			expect: func(ms *storageMock) {
				ms.On("Save", mock.Anything, mock.MatchedBy(func(st *UserState) bool {
					return st.UserID == user && st.CurrentState == StateAwaitingReview
				})).Return(nil).Once()
			},
		},
		{
			name:    "review cannot jump to report",
			stored:  &UserState{UserID: user, CurrentState: StateAwaitingReview},
			next:    StateAwaitingReport,
			wantErr: ErrInvalidTransition,
		},
		{
			name:   "idle deletes the record",
			stored: &UserState{UserID: user, CurrentState: StateAdminBroadcast},
			next:   StateIdle,
			expect: func(ms *storageMock) {
				ms.On("Delete", mock.Anything, user).Return(nil).Once()
			},
		},
		{
			name:    "load failure is returned",
			loadErr: errBackend,
			next:    StateAwaitingReport,
			wantErr: errBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &storageMock{}
			ms.On("Load", mock.Anything, user).Return(tt.stored, tt.loadErr).Once()
			if tt.expect != nil {
				tt.expect(ms)
			}

			err := NewStateMachine(ms, discardLogger(), nil).TransitionTo(context.Background(), user, tt.next, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestCurrentDefaultsToIdle(t *testing.T) {
	fsm := NewStateMachine(NewMemoryStorage(), discardLogger(), nil)

	st, err := fsm.Current(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
	assert.Equal(t, int64(7), st.UserID)
}

func TestDialogKeepsContext(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), discardLogger(), nil)

	require.NoError(t, fsm.TransitionTo(ctx, 11, StateAdminPlatformName, nil))
	require.NoError(t, fsm.TransitionTo(ctx, 11, StateAdminStockUpload, map[string]interface{}{
		KeyPlatform: "Netflix",
		KeyReplace:  true,
	}))

	st, err := fsm.Current(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, StateAdminStockUpload, st.CurrentState)
	assert.Equal(t, "Netflix", st.String(KeyPlatform))
	assert.True(t, st.Bool(KeyReplace))
	assert.False(t, st.UpdatedAt.IsZero())

	require.NoError(t, fsm.ClearState(ctx, 11))
	st, err = fsm.Current(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
}

func TestRecordsTransitions(t *testing.T) {
	var got []string
	RegisterTransitionRecorder(func(from, to string) { got = append(got, from+">"+to) })
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), discardLogger(), nil)
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAdminPlatformName, nil))
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAdminStockUpload, nil))
	assert.ErrorIs(t, fsm.TransitionTo(ctx, 1, StateAdminPlatformPrice, nil), ErrInvalidTransition)
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateIdle, nil))

	assert.Equal(t, []string{
		"idle>admin_platform_name",
		"admin_platform_name>admin_stock_upload",
		"admin_stock_upload>idle",
	}, got)
}

// slowStorage delays writes so concurrent callers overlap.
type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func (s slowStorage) Save(ctx context.Context, st *UserState) error {
	time.Sleep(s.delay)
	return s.MemoryStorage.Save(ctx, st)
}

func TestConcurrentWritesAreLocked(t *testing.T) {
	_, client := newRedis(t)

	for name, rdb := range map[string]*redis.Client{"redis": client, "local": nil} {
		t.Run(name, func(t *testing.T) {
			storage := slowStorage{MemoryStorage: NewMemoryStorage(), delay: 100 * time.Millisecond}
			fsm := NewStateMachine(storage, discardLogger(), rdb)

			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- fsm.TransitionTo(context.Background(), 77, StateAwaitingReport, nil)
				}()
			}
			wg.Wait()
			close(errs)

			var ok, locked int
			for err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, ErrStateLocked):
					locked++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, ok)
			assert.Equal(t, 1, locked)
		})
	}
}

func TestRedisLockLeavesForeignToken(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	l := redisLocker{client: client}

	unlock, err := l.lock(ctx, 5)
	require.NoError(t, err)

	key := redisKeyPrefix + "lock:5"
	mr.Set(key, "someone-else")
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists(key))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateAwaitingReview, true},
		{StateIdle, StateAdminBroadcast, true},
		{StateIdle, StateAdminStockUpload, true},
		{StateAdminPlatformName, StateAdminStockUpload, true},
		{StateAwaitingReview, StateAwaitingReport, false},
		{StateAdminStockUpload, StateAdminPlatformPrice, false},
		{State("unknown"), StateAwaitingReview, false},
		{StateIdle, State("unknown"), false},
		{State("whatever"), StateIdle, true},
		{StateAdminAddAdmin, StateError, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
