package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner purges expired keys from the in-memory store and deletes Redis
// keys that lost their expiry. Either backend may be nil.
type Cleaner struct {
	client   *redis.Client
	memory   *MemoryStore
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(client *redis.Client, memory *MemoryStore, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleaner{client: client, memory: memory, log: log, interval: interval}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil && c.memory == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.sweep(ctx)
			if c.memory != nil {
				removed += c.memory.Purge()
			}
			if removed > 0 {
				c.log.Debug("idempotency keys removed", slog.Int("count", removed))
			}
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) int {
	if c.client == nil {
		return 0
	}

	removed := 0
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// -1 means the key exists without expiry.
		if ttl, err := c.client.TTL(ctx, key).Result(); err != nil || ttl != -1 {
			continue
		}
		if err := c.client.Del(ctx, key).Err(); err == nil {
			removed++
		}
	}
	if err := iter.Err(); err != nil && ctx.Err() == nil {
		c.log.Warn("idempotency sweep failed", slog.Any("error", err))
	}
	return removed
}
