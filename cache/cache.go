// Package cache provides a small response cache for upstream travel APIs.
// Geocoding results, forecasts and place searches change slowly enough that
// short TTLs cut most upstream traffic. A miss and a backend failure look the
// same to callers, so a broken Redis degrades to direct upstream calls.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripmesh/tripmesh/logging"
)

// Cache stores upstream API responses by key.
type Cache interface {
	// Get returns the cached value, or ok=false on miss or backend error.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl. Failures are logged, not returned.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	logger logging.Logger
}

// RedisCacheOptions customizes a RedisCache.
type RedisCacheOptions struct {
	Logger logging.Logger
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client, optFns ...func(o *RedisCacheOptions)) *RedisCache {
	opts := RedisCacheOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisCache{client: client, logger: opts.Logger}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache.get_failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache.set_failed", "key", key, "error", err)
	}
}

// NoOp is a Cache that stores nothing. Used when no Redis is configured.
type NoOp struct{}

// Get implements Cache; always a miss.
func (NoOp) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Set implements Cache; discards the value.
func (NoOp) Set(context.Context, string, []byte, time.Duration) {}
