package repository

import (
	"context"
	"testing"
	"time"

	"detailing/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	defer Close(client)

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	limiter := NewRedisRateLimiter(client, "test")
	window := time.Hour

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4", 2, window)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "1.2.3.4", 2, window)
	require.NoError(t, err)
	assert.False(t, ok)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestRedisRateLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	defer Close(client)
	mr.Close()

	_, err := NewRedisRateLimiter(client, "").Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
	assert.Error(t, Ping(context.Background(), client))
}
