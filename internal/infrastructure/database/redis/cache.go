package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

var (
	// ErrCacheMiss is returned when a key is absent or its stored value
	// could not be decoded.
	ErrCacheMiss = errors.New(errors.ErrCodeCacheMiss, "cache miss")
)

// Cache is the shared-store façade the learning tiers use.  Values are JSON
// encoded; a value that fails to decode is removed and reported as a miss
// so one corrupt entry can never wedge a document.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetNX stores the value only when the key is absent and reports
	// whether the write happened.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	// Touch extends a key's TTL without rewriting its value.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
		loader func(ctx context.Context) (interface{}, error)) error
	Ping(ctx context.Context) error
}

type redisCache struct {
	rdb    redis.UniversalClient
	logger logging.Logger
	prefix string
	group  singleflight.Group
}

// CacheOption customizes a cache instance.
type CacheOption func(*redisCache)

// WithPrefix sets the key namespace prepended to every key.
func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// NewCache wraps a connected client in the cache façade.
func NewCache(rdb redis.UniversalClient, log logging.Logger, opts ...CacheOption) Cache {
	c := &redisCache{
		rdb:    rdb,
		logger: log.Named("cache"),
		prefix: "yakgwan:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string { return c.prefix + key }

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	full := c.fullKey(key)
	data, err := c.rdb.Get(ctx, full).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Corrupt entries are evicted and treated as a miss.
		c.logger.Warn("evicting corrupt cache entry",
			logging.String("key", full), logging.Err(err))
		_ = c.rdb.Del(ctx, full).Err()
		return ErrCacheMiss
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache set")
	}
	if err := c.rdb.Set(ctx, c.fullKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set")
	}
	return nil
}

func (c *redisCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSerialization, "cache setnx")
	}
	ok, err := c.rdb.SetNX(ctx, c.fullKey(key), data, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "cache setnx")
	}
	return ok, nil
}

func (c *redisCache) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, c.fullKey(key), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "cache touch")
	}
	return ok, nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.fullKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "cache exists")
	}
	return n > 0, nil
}

// GetOrSet returns the cached value or runs loader once per key across
// concurrent callers, caching its result.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
	loader func(ctx context.Context) (interface{}, error)) error {

	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.IsCode(err, errors.ErrCodeCacheMiss) {
		return err
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			c.logger.Warn("loaded value could not be cached",
				logging.String("key", key), logging.Err(err))
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// round-trip through JSON to fill dest uniformly for both the loader
	// path and concurrent waiters
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache get-or-set")
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheUnavailable, "cache ping")
	}
	return nil
}
