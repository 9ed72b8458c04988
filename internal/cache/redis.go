package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm-insight/internal/models"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores datasets as JSON so several API replicas share one load
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisCacheFromClient(rdb, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client; ttl 0 keeps entries
// until invalidated
func NewRedisCacheFromClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func datasetKey(key string) string {
	return fmt.Sprintf("dataset:%s", key)
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Dataset, bool, error) {
	payload, err := c.rdb.Get(ctx, datasetKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached dataset: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached dataset: %w", err)
	}
	return &ds, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, ds *models.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := c.rdb.Set(ctx, datasetKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache dataset: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, datasetKey(key)).Err()
}
