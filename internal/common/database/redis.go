// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"workshop-onboarding/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the connection behind the local draft cache.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedis connects with a small pool; the CLI holds at most a few keys per operator.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	return &RedisClient{Client: rdb}
}

// NewRedisFromClient wraps an existing client (redismock, miniredis-backed clients).
func NewRedisFromClient(client redis.UniversalClient) *RedisClient {
	return &RedisClient{Client: client}
}

// Ping checks reachability before the cache is enabled.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Get retrieves a value by key. A missing key returns ("", false, nil).
func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value; a zero expiration keeps it until deleted.
func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}
