package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; each instance holds a Redis client and a
// default TTL (pass 0 for keys that should not expire). Expiry is left to
// Redis itself.
//
// Every operation degrades instead of failing: reads turn backend errors into
// misses and writes log and move on.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client goredis.Cmdable, ttl time.Duration, log *zap.Logger) *ViewCache[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, log: log}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss, backend error or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("view cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("view cache entry unreadable, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Set stores value under key with the cache's default TTL.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	c.SetTTL(ctx, key, value, c.ttl)
}

// SetTTL replaces the whole entry under key and restarts its TTL.
// Errors are logged rather than returned, a cache write miss is non-fatal.
func (c *ViewCache[T]) SetTTL(ctx context.Context, key string, value *T, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error("view cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("view cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
