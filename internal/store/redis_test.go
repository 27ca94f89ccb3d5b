package store

import (
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestRedis_Lease(t *testing.T) {
	mr := miniredis.RunT(t)
	r := Redis{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}), Prefix: "opendoor/"}

	ctx := context.Background()
	now := time.Now()

	ok, err := r.Acquire(ctx, "gate", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("opendoor/gate"))

	ok, err = r.Acquire(ctx, "gate", now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Release(ctx, "gate"))
	require.NoError(t, r.Release(ctx, "gate"))

	ok, err = r.Acquire(ctx, "gate", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale lease expires
	mr.FastForward(time.Minute)
	ok, err = r.Acquire(ctx, "gate", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)

	_, err = OpenRedis(context.Background(), "redis://localhost:1")
	assert.Error(t, err)
}
