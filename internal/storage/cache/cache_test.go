package cache

import (
	"context"
	"testing"
	"time"

	"moviedb/proj/internal/domain/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCacheBackends(t *testing.T) {
	ctx := context.Background()
	backends := []struct {
		name string
		new  func(t *testing.T) Cache
	}{
		{name: "memory", new: func(t *testing.T) Cache { return NewMemory(10, time.Minute) }},
		{name: "redis", new: func(t *testing.T) Cache {
			c, _ := newTestRedis(t, time.Minute)
			return c
		}},
	}
	want := models.MoviePage{Page: 1, TotalPages: 3, Results: []models.Movie{{ID: 550, Title: "Fight Club"}}}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			t.Run("miss", func(t *testing.T) {
				c := backend.new(t)
				var page models.MoviePage
				found, err := c.Get(ctx, "movies:popular:1", &page)
				require.NoError(t, err)
				assert.False(t, found)
			})
			t.Run("hit", func(t *testing.T) {
				c := backend.new(t)
				require.NoError(t, c.Set(ctx, "movies:popular:1", want))
				var got models.MoviePage
				found, err := c.Get(ctx, "movies:popular:1", &got)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, want, got)
			})
			t.Run("overwrite", func(t *testing.T) {
				c := backend.new(t)
				require.NoError(t, c.Set(ctx, "movies:search:matrix:1", want))
				replaced := models.MoviePage{Page: 1, Results: []models.Movie{{ID: 603, Title: "The Matrix"}}}
				require.NoError(t, c.Set(ctx, "movies:search:matrix:1", replaced))
				var got models.MoviePage
				found, err := c.Get(ctx, "movies:search:matrix:1", &got)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, replaced, got)
			})
			t.Run("undecodable value", func(t *testing.T) {
				c := backend.new(t)
				require.NoError(t, c.Set(ctx, "k", "not a number"))
				var v int
				found, err := c.Get(ctx, "k", &v)
				assert.Error(t, err)
				assert.False(t, found)
			})
		})
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)
	require.NoError(t, c.Set(ctx, "movies:popular:1", 1))
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	assert.Equal(t, 2, c.Len())
	var v int
	found, _ := c.Get(ctx, "movies:popular:1", &v)
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", "v"))
	assert.Eventually(t, func() bool {
		var v string
		found, _ := c.Get(ctx, "k", &v)
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestRedisCacheKeysAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t, 5*time.Minute)

	require.NoError(t, c.Set(ctx, "movies:popular:1", models.MoviePage{Page: 1}))
	assert.True(t, mr.Exists(keyPrefix+"movies:popular:1"))
	assert.False(t, mr.Exists("movies:popular:1"))
	assert.Equal(t, 5*time.Minute, mr.TTL(keyPrefix+"movies:popular:1"))

	mr.FastForward(5*time.Minute + time.Second)
	var page models.MoviePage
	found, err := c.Get(ctx, "movies:popular:1", &page)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheServerDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t, time.Minute)
	mr.Close()

	var page models.MoviePage
	found, err := c.Get(ctx, "movies:popular:1", &page)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, c.Set(ctx, "movies:popular:1", page))
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, addr, "", 0, time.Minute)
	assert.Error(t, err)
}
