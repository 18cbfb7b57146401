package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifestyle-api/internal/client"
	"lifestyle-api/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitCache implements fixed-window counters. The window starts at
// the first hit and the key expires with it.
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow counts one hit against key and reports whether it is within limit.
// When the limit is exceeded retryAfter is the remaining window.
func (c *RateLimitCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	rateLimitKey := rateLimitPrefix + key

	count, err := c.client.IncrWithExpire(ctx, rateLimitKey, window)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("key", key),
			zap.Duration("window", window),
			zap.Error(err))
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := c.client.TTL(ctx, rateLimitKey)
	if err != nil || ttl < 0 {
		ttl = window
	}

	util.Debug("Rate limit exceeded",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit))

	return false, ttl, nil
}

func (c *RateLimitCache) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, rateLimitPrefix+key); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}
