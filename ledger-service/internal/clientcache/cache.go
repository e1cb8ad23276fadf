// Package clientcache keeps the ledger side's view of clients: a TTL cache
// fed by client events, a synchronous lookup against the client service, and
// the resolver that combines them.
package clientcache

import (
	"context"
	"time"

	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/models"
	sharedredis "github.com/eaglebank/corebank/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultKeyPrefix = "client:"

// Cache stores CachedClient snapshots by client key. Entries are whole-record
// replaced and expire through Redis TTLs; a Redis outage reads as a miss.
type Cache struct {
	views   *sharedredis.ViewCache[models.CachedClient]
	prefix  string
	ttl     time.Duration
	metrics *metrics.Collector
}

func NewCache(client goredis.Cmdable, prefix string, ttl time.Duration, collector *metrics.Collector, log *zap.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{
		views:   sharedredis.NewViewCache[models.CachedClient](client, ttl, log),
		prefix:  prefix,
		ttl:     ttl,
		metrics: collector,
	}
}

func (c *Cache) Get(ctx context.Context, clientKey string) (*models.CachedClient, bool) {
	v, ok := c.views.Get(ctx, c.prefix+clientKey)
	if ok {
		c.metrics.CacheHit()
	} else {
		c.metrics.CacheMiss()
	}
	return v, ok
}

// Put writes the snapshot with the default TTL. Placeholders are refused.
func (c *Cache) Put(ctx context.Context, client *models.CachedClient) {
	c.PutTTL(ctx, client, c.ttl)
}

func (c *Cache) PutTTL(ctx context.Context, client *models.CachedClient, ttl time.Duration) {
	if client == nil || client.Placeholder || client.ClientKey == "" {
		return
	}
	c.views.SetTTL(ctx, c.prefix+client.ClientKey, client, ttl)
}

func (c *Cache) Delete(ctx context.Context, clientKey string) {
	c.views.Delete(ctx, c.prefix+clientKey)
}
