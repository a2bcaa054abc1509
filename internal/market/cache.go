package market

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized market snapshots with a TTL. A Redis-backed
// implementation is used when configured so multiple agent instances
// share one upstream budget; otherwise an in-process cache serves.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a mutex-guarded TTL map.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// RedisCache adapts a Redis client to the Cache interface. Errors are
// treated as misses so a Redis outage degrades to upstream fetches.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.rdb.Set(ctx, key, value, ttl)
}
