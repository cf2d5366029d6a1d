package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache remembers positive membership results in Redis. A nil client
// disables caching.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a membership cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Verified reports whether a positive result is cached for userID.
func (c *Cache) Verified(ctx context.Context, userID int64) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	err := c.client.Get(ctx, cacheKey(userID)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get cached membership: %w", err)
	}

	return true, nil
}

// Set stores a positive result for the provided TTL.
func (c *Cache) Set(ctx context.Context, userID int64, ttl time.Duration) error {
	if c == nil || c.client == nil || ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(userID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("set cached membership: %w", err)
	}

	return nil
}

// Invalidate removes the cached entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached membership: %w", err)
	}

	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("verified:%d", userID)
}
