package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore implements fixed-window rate limiting counters backed by Redis.
type RateLimitStore struct {
	client goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRateLimitStore creates a new Redis-backed rate limit store.
func NewRateLimitStore(client goredis.Cmdable) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// Allow counts one request against key in the current window.
// Windows are discrete: unix time / window length.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	secs := max(int64(window.Seconds()), 1)
	windowID := s.now().Unix() / secs
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}
	// First hit opens the window.
	if count == 1 {
		s.client.Expire(ctx, redisKey, window+time.Second)
	}

	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (windowID + 1) * secs,
	}, nil
}
