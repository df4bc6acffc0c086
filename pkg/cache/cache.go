// Package cache stores JSON values and counters in Redis. A nil Redis client
// yields a cache that always misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the subset of Redis operations the services use.
type Cache interface {
	// GetJSON decodes the value at key into dest. It reports false on a miss.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern such as "leaderboard:*".
	DeletePattern(ctx context.Context, pattern string) error
	// Increment bumps a counter and sets its TTL on the first increment.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Enabled reports whether values are actually stored.
	Enabled() bool
}

// New returns a Redis-backed cache, or a no-op cache when client is nil.
func New(client *redis.Client) Cache {
	if client == nil {
		return Noop{}
	}
	return &redisCache{client: client}
}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func (c *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete keys failed: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *redisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache increment failed: %w", err)
	}
	if val == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return val, fmt.Errorf("cache expire failed: %w", err)
		}
	}
	return val, nil
}

func (c *redisCache) Enabled() bool { return true }

// Noop is a cache that stores nothing.
type Noop struct{}

func (Noop) GetJSON(context.Context, string, any) (bool, error)              { return false, nil }
func (Noop) SetJSON(context.Context, string, any, time.Duration) error       { return nil }
func (Noop) Delete(context.Context, ...string) error                         { return nil }
func (Noop) DeletePattern(context.Context, string) error                     { return nil }
func (Noop) Increment(context.Context, string, time.Duration) (int64, error) { return 0, nil }
func (Noop) Enabled() bool                                                   { return false }

var (
	_ Cache = (*redisCache)(nil)
	_ Cache = Noop{}
)
