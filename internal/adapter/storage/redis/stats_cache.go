package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StatsCache implements ports.StatsCache on plain Redis strings.
type StatsCache struct {
	client goredis.Cmdable
	prefix string
}

// NewStatsCache creates a Redis-backed cache for aggregated statistics.
func NewStatsCache(client goredis.Cmdable) *StatsCache {
	return &StatsCache{
		client: client,
		prefix: "cache:",
	}
}

// Get returns the cached bytes, or nil on a miss.
func (c *StatsCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis cache get: %w", err)
	}
	return val, nil
}

// Set stores value under key for ttl.
func (c *StatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}
