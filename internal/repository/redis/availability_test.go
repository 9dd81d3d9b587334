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

func setupTestRedis(t *testing.T) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := NewAvailabilityCache(client, 30*time.Second)
	return cache, mr
}

func TestAvailabilityCache_GetMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	available, found, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, available)
}

func TestAvailabilityCache_SetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "prod-1", 42))

	available, found, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42, available)

	// Value expires with the configured TTL.
	ttl := mr.TTL("stock:available:prod-1")
	assert.Equal(t, 30*time.Second, ttl)
}

func TestAvailabilityCache_GetCorruptValue(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, mr.Set("stock:available:prod-1", "not-a-number"))

	_, found, err := cache.Get(context.Background(), "prod-1")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestAvailabilityCache_ZeroIsCacheable(t *testing.T) {
	cache, _ := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "prod-1", 0))

	available, found, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, available)
}

func TestAvailabilityCache_Invalidate(t *testing.T) {
	cache, _ := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "prod-1", 10))
	require.NoError(t, cache.Set(context.Background(), "prod-2", 20))

	require.NoError(t, cache.Invalidate(context.Background(), "prod-1", "prod-2"))

	_, found, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = cache.Get(context.Background(), "prod-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAvailabilityCache_InvalidateNothing(t *testing.T) {
	cache, _ := setupTestRedis(t)

	assert.NoError(t, cache.Invalidate(context.Background()))
}
