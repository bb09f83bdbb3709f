// Package redis provides the shared cache backend: a configured client plus
// a JSON cache façade with the semantics the learning tiers rely on
// (check-and-set registration, TTL touch, corruption treated as a miss).
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

const pingTimeout = 5 * time.Second

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.New(errors.ErrCodeCacheUnavailable, "redis connection failed").WithCause(err)
	}

	log.Info("redis connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return rdb, nil
}
