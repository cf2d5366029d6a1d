package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status of a key. The zero value means unknown.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
)

// Store records key status with expiry.
type Store interface {
	// Begin marks an unknown key as processing and returns "". A known key
	// is left untouched and its status returned.
	Begin(ctx context.Context, key string, ttl time.Duration) (Status, error)
	Finish(ctx context.Context, key string, ttl time.Duration) error
	Abort(ctx context.Context, key string) error
}

const redisKeyPrefix = "rewards:idem:"

// RedisStore shares keys between replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Begin(ctx context.Context, key string, ttl time.Duration) (Status, error) {
	k := redisKeyPrefix + key
	ok, err := s.client.SetNX(ctx, k, string(StatusProcessing), ttl).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}

	current, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; treat as still in flight.
		return StatusProcessing, nil
	}
	if err != nil {
		return "", err
	}
	return Status(current), nil
}

func (s *RedisStore) Finish(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, redisKeyPrefix+key, string(StatusDone), ttl).Err()
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

type memoryEntry struct {
	status    Status
	expiresAt time.Time
}

// MemoryStore is used when Redis is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Begin(_ context.Context, key string, ttl time.Duration) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return e.status, nil
	}
	s.entries[key] = memoryEntry{status: StatusProcessing, expiresAt: now.Add(ttl)}
	return "", nil
}

func (s *MemoryStore) Finish(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{status: StatusDone, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Abort(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Purge drops expired keys and returns how many were removed.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
