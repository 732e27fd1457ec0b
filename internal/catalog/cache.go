package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when nothing is stored under a key.
var ErrCacheMiss = errors.New("cache miss")

// DefaultCacheTTL bounds how long a cached snapshot survives without an
// invalidation.
const DefaultCacheTTL = 10 * time.Minute

// Cache stores encoded snapshots. Invalidate drops every entry at once.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Invalidate(ctx context.Context) error
}

// RedisCache keeps snapshots in redis. Keys embed a generation counter;
// Invalidate bumps it so old entries are never read again and expire by TTL.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache under prefix. A ttl <= 0 uses DefaultCacheTTL.
func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if prefix == "" {
		prefix = "catalog"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// NewRedis creates and validates a go-redis client connection.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *RedisCache) genKey() string { return c.prefix + ":gen" }

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisCache) key(gen int64, key string) string {
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + key
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	b, err := c.rdb.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, val []byte) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(gen, key), val, c.ttl).Err()
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey()).Err()
}
