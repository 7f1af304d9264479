package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRateLimitStore_Allow(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "ip:10.0.0.1:register", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "ip:10.0.0.1:register", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "ip:10.0.0.2:register", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("counter expires with the window", func(t *testing.T) {
		key := "ip:10.0.0.3:login"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		mr.FastForward(61 * time.Second)

		result, err = store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestRateLimitStore_ResetAt(t *testing.T) {
	_, client := newTestClient(t)
	store := NewRateLimitStore(client)
	store.now = func() time.Time { return time.Unix(1_000_030, 0) }

	result, err := store.Allow(context.Background(), "ip:10.0.0.4:login", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_080), result.ResetAt, "end of the current 60s window")
}

func TestRateLimitStore_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewRateLimitStore(client)
	mr.Close()

	_, err := store.Allow(context.Background(), "ip:10.0.0.5:login", 1, time.Minute)
	assert.ErrorContains(t, err, "redis rate limit incr")
}
