package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our owner token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// JobLock implements ports.JobLock using Redis SET NX. Each instance owns a
// unique token so a replica never releases a lock held by another one.
type JobLock struct {
	client goredis.Cmdable
	prefix string
	owner  string
}

// NewJobLock creates a Redis-backed job lock.
func NewJobLock(client goredis.Cmdable) *JobLock {
	return &JobLock{
		client: client,
		prefix: "joblock:",
		owner:  ulid.Make().String(),
	}
}

// Acquire takes key for ttl. Returns false if another owner holds it.
func (l *JobLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+key, l.owner, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops key if this instance still owns it.
func (l *JobLock) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, l.owner).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
