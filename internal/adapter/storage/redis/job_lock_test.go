package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLock_AcquireRelease(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	a := NewJobLock(client)
	b := NewJobLock(client)

	ok, err := a.Acquire(ctx, "quota-reset", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, "quota-reset", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second replica must not run the job")

	require.NoError(t, b.Release(ctx, "quota-reset"))
	assert.True(t, mr.Exists("joblock:quota-reset"), "foreign release leaves the lock")

	require.NoError(t, a.Release(ctx, "quota-reset"))
	assert.False(t, mr.Exists("joblock:quota-reset"))

	ok, err = b.Acquire(ctx, "quota-reset", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobLock_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	a := NewJobLock(client)

	ok, err := a.Acquire(ctx, "token-purge", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	ok, err = NewJobLock(client).Acquire(ctx, "token-purge", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "crashed holder releases by ttl")
}
