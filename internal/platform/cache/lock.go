package cache

import (
	"context"
	"fmt"
	"time"

	"igress/internal/common"
	"igress/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our value.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Locker hands out short lived exclusive locks keyed by name.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type redisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb}
}

// Acquire returns common.ErrLockNotAcquired when another holder owns key.
func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	value := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redisLocker.Acquire %s: %w", key, err)
	}
	if !ok {
		return nil, common.ErrLockNotAcquired
	}

	release := func() {
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, value).Int64()
		if err != nil {
			logger.Log.Error("failed to release lock", zap.String("key", key), zap.Error(err))
			return
		}
		if deleted == 0 {
			logger.Log.Warn("lock expired before release", zap.String("key", key))
		}
	}
	return release, nil
}
