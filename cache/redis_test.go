package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisSet(t *testing.T, expiresAfter time.Duration) (*RedisSet, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	set := NewRedisSet(client, "starboard:", expiresAfter)
	t.Cleanup(func() { _ = set.Close() })
	return set, srv
}

func TestRedisSet_AddExistsDiscard(t *testing.T) {
	ctx := context.Background()
	set, srv := newRedisSet(t, time.Minute)

	require.NoError(t, set.Add(ctx, "guild-1"))
	assert.True(t, srv.Exists("starboard:guild-1"))

	ok, err := set.Exists(ctx, "guild-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, set.Discard(ctx, "guild-1"))
	ok, err = set.Exists(ctx, "guild-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, set.Discard(ctx, "missing"))
}

func TestRedisSet_Expiry(t *testing.T) {
	ctx := context.Background()
	set, srv := newRedisSet(t, 30*time.Minute)

	require.NoError(t, set.Add(ctx, "k"))
	srv.FastForward(29 * time.Minute)
	ok, err := set.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	srv.FastForward(time.Minute)
	ok, err = set.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSet_ServerDown(t *testing.T) {
	ctx := context.Background()
	set, srv := newRedisSet(t, time.Minute)
	srv.Close()

	_, err := set.Exists(ctx, "k")
	assert.Error(t, err)
}
