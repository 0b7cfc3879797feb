// Package lock provides a single-holder Redis lock (SET NX PX with a
// compare-and-delete release).
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// TryLock returns ok=false when another holder has the key. The returned
// release func reports whether the lock was still ours when released.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) (bool, error), bool, error) {
	value := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to attempt lock acquisition for %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) (bool, error) {
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, value).Int64()
		if err != nil {
			return false, fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return deleted == 1, nil
	}
	return release, true, nil
}
