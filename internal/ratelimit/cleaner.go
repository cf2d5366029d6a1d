package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner forgets idle windows. Redis keys expire on their own once idle,
// the sweep only catches keys whose TTL was lost, e.g. after a restore.
type Cleaner struct {
	client   *redis.Client
	memory   *MemoryLimiter
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(client *redis.Client, memory *MemoryLimiter, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Cleaner{client: client, memory: memory, log: log, interval: interval, maxAge: maxAge}
}

// Run sweeps every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.interval <= 0 || (c.client == nil && c.memory == nil) {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.cleanup(ctx)
			if c.memory != nil {
				removed += c.memory.Cleanup(c.maxAge)
			}
			if removed > 0 {
				c.log.Debug("rate limit windows removed", slog.Int("count", removed))
			}
		}
	}
}

// cleanup trims stale events from Redis windows and deletes the empty
// ones. It returns the number of deleted keys.
func (c *Cleaner) cleanup(ctx context.Context) int {
	if c.client == nil {
		return 0
	}

	cutoff := strconv.FormatInt(time.Now().Add(-c.maxAge).UnixMilli(), 10)
	removed := 0

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
			c.log.Warn("rate limit trim failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if c.client.ZCard(ctx, key).Val() > 0 {
			continue
		}
		if err := c.client.Del(ctx, key).Err(); err == nil {
			removed++
		}
	}
	if err := iter.Err(); err != nil && ctx.Err() == nil {
		c.log.Error("rate limit scan failed", slog.Any("error", err))
	}

	return removed
}
