package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCache(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewStatsCache(client)
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		val, err := cache.Get(ctx, "merchant:stats")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("hit returns stored bytes", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "merchant:stats", []byte(`{"total":3}`), time.Minute))

		val, err := cache.Get(ctx, "merchant:stats")
		require.NoError(t, err)
		assert.JSONEq(t, `{"total":3}`, string(val))
	})

	t.Run("entry expires", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "merchant:stats", []byte(`{}`), time.Minute))
		mr.FastForward(61 * time.Second)

		val, err := cache.Get(ctx, "merchant:stats")
		require.NoError(t, err)
		assert.Nil(t, val)
	})
}
