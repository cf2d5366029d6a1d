package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_RoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	storage := NewRedisStorage(client, 0, discardLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &UserState{
		UserID:       123,
		CurrentState: StateAdminStockUpload,
		Context:      map[string]interface{}{KeyPlatform: "Netflix", KeyReplace: true},
	}))

	got, err := storage.Load(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, StateAdminStockUpload, got.CurrentState)
	assert.Equal(t, "Netflix", got.String(KeyPlatform))
	assert.True(t, got.Bool(KeyReplace))
	assert.Equal(t, DefaultTTL, mr.TTL(stateKey(123)))

	mr.FastForward(DefaultTTL + time.Second)
	_, err = storage.Load(ctx, 123)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_DeleteAndList(t *testing.T) {
	mr, client := newRedis(t)
	storage := NewRedisStorage(client, time.Minute, discardLogger())
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.Save(ctx, &UserState{UserID: id, CurrentState: StateAwaitingReview}))
	}
	require.NoError(t, storage.Delete(ctx, 2))
	mr.Set(redisKeyPrefix+"user:9", "{broken")

	_, err := storage.Load(ctx, 2)
	assert.ErrorIs(t, err, ErrStateNotFound)

	all, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 1, CurrentState: StateAwaitingReview, Context: map[string]interface{}{KeyPlatform: "a"}}))

	got, err := storage.Load(ctx, 1)
	require.NoError(t, err)
	got.Context[KeyPlatform] = "b"

	again, err := storage.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", again.String(KeyPlatform))
}

func TestCleaner_ResetsAbandonedDialogs(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	storage.now = func() time.Time { return base }
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 1, CurrentState: StateAwaitingReview}))
	storage.now = func() time.Time { return base.Add(50 * time.Minute) }
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 2, CurrentState: StateAwaitingReport}))

	cleaner := NewCleaner(storage, discardLogger(), 30*time.Minute, time.Minute)
	cleaner.now = func() time.Time { return base.Add(time.Hour) }
	assert.Equal(t, 1, cleaner.sweep(ctx))

	_, err := storage.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
	_, err = storage.Load(ctx, 2)
	assert.NoError(t, err)
}
