package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/ports"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores provider output in Redis with a fixed TTL.
type RedisCache struct {
	client redisClient
	closer io.Closer
	ttl    time.Duration
}

var _ ports.TranslationCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and pings it once.
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	c := newRedisCache(rdb, cfg.TTL)
	c.closer = rdb
	return c, nil
}

func newRedisCache(client redisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached value; a missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Set stores value under key.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
