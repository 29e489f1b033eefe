package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "menulive:view:"

// Cache is a write-through Redis cache of rendered view JSON keyed by slug.
// It is an optimization layer only: a miss or a Redis outage falls back to
// the in-memory views, never to an error.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache connects a cache to a Redis instance.
func NewCache(addr string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached rendering for a slug, if present.
func (c *Cache) Get(ctx context.Context, slug string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+slug).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("View cache read failed", "slug", slug, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores the rendering for a slug.
func (c *Cache) Set(ctx context.Context, slug string, data []byte) {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+slug, data, c.ttl).Err(); err != nil {
		c.logger.Warn("View cache write failed", "slug", slug, "error", err)
	}
}

// Invalidate drops the rendering for a slug.
func (c *Cache) Invalidate(ctx context.Context, slug string) {
	if err := c.rdb.Del(ctx, cacheKeyPrefix+slug).Err(); err != nil {
		c.logger.Warn("View cache invalidation failed", "slug", slug, "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
