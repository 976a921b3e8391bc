package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores rendered report bytes keyed by snapshot version, so a
// report is only rebuilt when the underlying dataset changes.
type Cache interface {
	Get(ctx context.Context, version string) ([]byte, bool, error)
	Set(ctx context.Context, version string, data []byte) error
}

const redisKeyPrefix = "ims:report:"

// RedisCache backs the report cache with Redis. Entries expire after the
// configured TTL regardless of version churn.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, version string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+version).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("report cache get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, version string, data []byte) error {
	if err := c.client.Set(ctx, redisKeyPrefix+version, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("report cache set: %w", err)
	}
	return nil
}

// MemoryCache is the in-process fallback when Redis is not configured.
// It keeps a single entry: the report for the current snapshot version.
type MemoryCache struct {
	ttl time.Duration

	mu        sync.RWMutex
	version   string
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context, version string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version != version || c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false, nil
	}
	return c.data, true, nil
}

func (c *MemoryCache) Set(_ context.Context, version string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = version
	c.data = data
	c.expiresAt = time.Now().Add(c.ttl)
	return nil
}
