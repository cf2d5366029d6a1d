package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every window stored in Redis.
const keyPrefix = "rewards:rl:"

// slidingWindow trims the window, admits the event when there is room and
// otherwise reports the oldest admitted timestamp. Rejected events are not
// recorded, so hammering a full bucket does not extend it.
//
// ARGV: now (ms), window (ms), limit, member.
// Returns {allowed, remaining, oldest (ms)}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window * 2)
	return {1, limit - count - 1, now}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, 0, tonumber(oldest[2])}
`)

// RedisLimiter keeps one sorted set per key, shared by every bot replica.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{client: client, log: log, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("ratelimit: redis client is not configured")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{ResetAt: now.Add(window)}, ErrLimitExceeded
	}

	reply, err := slidingWindow.Run(ctx, l.client, []string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		l.log.ErrorContext(ctx, "rate limit script failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("ratelimit: check %s: %w", key, err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("ratelimit: unexpected script reply %v", reply)
	}

	result := &Result{
		Allowed:   reply[0] == 1,
		Remaining: int(reply[1]),
		ResetAt:   time.UnixMilli(reply[2]).Add(window),
	}
	if !result.Allowed {
		return result, ErrLimitExceeded
	}
	return result, nil
}
