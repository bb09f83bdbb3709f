package redis

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// memoryCache is a process-local Cache for offline runs: CLI dry runs and
// tests that exercise the learning tiers without a Redis deployment.  Values
// take the same JSON round-trip as the Redis-backed cache so decode behavior
// is identical.
type memoryCache struct {
	store *gocache.Cache
	group singleflight.Group
}

// NewMemoryCache returns an in-process Cache with per-entry TTL support.
func NewMemoryCache() Cache {
	return &memoryCache{
		store: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

func memTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	data, ok := raw.([]byte)
	if !ok {
		c.store.Delete(key)
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.store.Delete(key)
		return ErrCacheMiss
	}
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store.Set(key, data, memTTL(ttl))
	return nil
}

func (c *memoryCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := c.store.Add(key, data, memTTL(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *memoryCache) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	raw, ok := c.store.Get(key)
	if !ok {
		return false, nil
	}
	c.store.Set(key, raw, memTTL(ttl))
	return true, nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		c.store.Delete(k)
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.store.Get(key)
	return ok, nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
	loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, raw, memTTL(ttl))
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data.([]byte), dest)
}

func (c *memoryCache) Ping(ctx context.Context) error { return nil }
