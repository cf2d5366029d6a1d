package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rewards:dialog:"

// DefaultTTL bounds how long an abandoned dialog survives in Redis.
const DefaultTTL = time.Hour

// RedisStorage keeps each dialog as a JSON value that expires after ttl.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, ttl: ttl, log: log}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("%suser:%d", redisKeyPrefix, userID)
}

func (s *RedisStorage) Load(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dialog: %w", err)
	}

	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode dialog %d: %w", userID, err)
	}
	return &st, nil
}

func (s *RedisStorage) Save(ctx context.Context, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode dialog %d: %w", st.UserID, err)
	}
	if err := s.client.Set(ctx, stateKey(st.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save dialog: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete dialog: %w", err)
	}
	return nil
}

// List collects every dialog. Values that fail to decode are skipped.
func (s *RedisStorage) List(ctx context.Context) ([]*UserState, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"user:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan dialogs: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch dialogs: %w", err)
	}

	out := make([]*UserState, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // expired after the scan
		}
		var st UserState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			s.log.Warn("skipping undecodable dialog", slog.String("key", keys[i]), slog.Any("error", err))
			continue
		}
		out = append(out, &st)
	}
	return out, nil
}
