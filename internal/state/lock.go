package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockTTL = 5 * time.Second

// locker serializes dialog writes per user. unlock must be called once
// after a successful lock.
type locker interface {
	lock(ctx context.Context, userID int64) (unlock func(context.Context) error, err error)
}

type localLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[int64]bool)}
}

func (l *localLocker) lock(_ context.Context, userID int64) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[userID] {
		return nil, ErrStateLocked
	}
	l.held[userID] = true

	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, userID)
		l.mu.Unlock()
		return nil
	}, nil
}

// releaseLock deletes the lock only if it still carries our token, so an
// expired lock taken over by another replica is left alone.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
}

func (l redisLocker) lock(ctx context.Context, userID int64) (func(context.Context) error, error) {
	key := fmt.Sprintf("%slock:%d", redisKeyPrefix, userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire dialog lock: %w", err)
	}
	if !ok {
		return nil, ErrStateLocked
	}

	return func(ctx context.Context) error {
		return releaseLock.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
