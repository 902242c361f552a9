package cache

import (
	"context"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
)

type redisCache struct {
	redis *cache.Cache
}

// NewRedisCache returns a Cache backed by Redis. The in process local cache
// layer is skipped on writes so every worker sees the same entries.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{redis: cache.New(&cache.Options{Redis: client})}
}

// Set stores value under key with the given ttl
func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	item := &cache.Item{
		Ctx:            ctx,
		Key:            key,
		Value:          value,
		TTL:            ttl,
		SkipLocalCache: true,
	}
	return c.redis.Set(item)
}

// Get loads the entry under key into value, which must be a reference. It
// reports whether the key was found.
func (c *redisCache) Get(ctx context.Context, key string, value any) bool {
	if err := c.redis.Get(ctx, key, &value); err != nil {
		return false
	}

	return true
}

// Exists reports whether key holds a live entry
func (c *redisCache) Exists(ctx context.Context, key string) bool {
	return c.redis.Exists(ctx, key)
}

// Delete removes the entry under key
func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.redis.Delete(ctx, key)
}
