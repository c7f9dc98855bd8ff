package cache

import (
	"context"
	"testing"
	"time"

	"igress/internal/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestLockIsExclusiveUntilReleased(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "finalize:ct:s", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "finalize:ct:s", time.Minute)
	require.ErrorIs(t, err, common.ErrLockNotAcquired)

	release()
	assert.False(t, mr.Exists("finalize:ct:s"))

	release2, err := locker.Acquire(ctx, "finalize:ct:s", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestReleaseDoesNotDropForeignLock(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb)

	release, err := locker.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("k", "someone-else"))

	release()
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestPrincipalCacheRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewRedisPrincipalCache(rdb, 30*time.Second)
	ctx := context.Background()

	miss, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, "u1", &Principal{Roles: []string{"staff"}, IsActive: true}))
	hit, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, []string{"staff"}, hit.Roles)
	assert.True(t, hit.IsActive)

	mr.FastForward(31 * time.Second)
	expired, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, c.Set(ctx, "u1", &Principal{Roles: []string{"staff"}}))
	require.NoError(t, c.Invalidate(ctx, "u1"))
	gone, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
