package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	entry := CacheEntry{Identity: Identity{UserID: 1}, ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, c.Set(ctx, "a", entry))

	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(1), got.Identity.UserID)

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryCacheIsBounded(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, CacheEntry{ExpiresAt: time.Now().Add(time.Minute)}))
	}

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)

	require.NoError(t, c.Set(ctx, "a", CacheEntry{ExpiresAt: time.Now().Add(time.Minute)}))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	expiresAt := time.Now().Add(time.Minute).Truncate(time.Second)
	entry := CacheEntry{Identity: Identity{UserID: 5, Scope: "vendor.profile.read"}, ExpiresAt: expiresAt}
	require.NoError(t, c.Set(ctx, CacheKeyPrefix+"tkn", entry))

	assert.True(t, mr.Exists(CacheKeyPrefix+"tkn"))
	ttl := mr.TTL(CacheKeyPrefix + "tkn")
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %s", ttl)

	got, ok, err := c.Get(ctx, CacheKeyPrefix+"tkn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(5), got.Identity.UserID)
	assert.True(t, expiresAt.Equal(got.ExpiresAt))

	require.NoError(t, c.Delete(ctx, CacheKeyPrefix+"tkn"))
	_, ok, err = c.Get(ctx, CacheKeyPrefix+"tkn")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheSkipsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "k", CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))
	assert.False(t, mr.Exists("k"))
}

func TestRedisCacheTTLElapses(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "k", CacheEntry{ExpiresAt: time.Now().Add(30 * time.Second)}))
	mr.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, mr.Set("k", "{not json"))
	_, _, err := c.Get(ctx, "k")
	assert.Error(t, err)
}
