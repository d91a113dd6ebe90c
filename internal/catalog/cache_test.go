// internal/catalog/cache_test.go
package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/trackline/internal/room"
)

// countingSource tracks how often the upstream catalog is hit.
type countingSource struct {
	calls int
	pool  []room.Round
	err   error
}

func (c *countingSource) LoadRounds(ctx context.Context, playlistIDs []string) ([]room.Round, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.pool, nil
}

func setupCache(t *testing.T, next Source) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(rdb, next, time.Minute, nil), mr
}

func TestRedisCacheServesSecondLoadFromCache(t *testing.T) {
	upstream := &countingSource{pool: []room.Round{{ID: "a", Title: "A", Year: 1990}}}
	cache, _ := setupCache(t, upstream)
	ctx := context.Background()

	first, err := cache.LoadRounds(ctx, []string{"pl-1"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, upstream.calls)

	second, err := cache.LoadRounds(ctx, []string{"pl-1"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls, "second load must be a cache hit")
}

func TestRedisCacheKeyIsOrderInsensitive(t *testing.T) {
	upstream := &countingSource{pool: []room.Round{{ID: "a"}}}
	cache, _ := setupCache(t, upstream)
	ctx := context.Background()

	_, err := cache.LoadRounds(ctx, []string{"pl-2", "pl-1"})
	require.NoError(t, err)
	_, err = cache.LoadRounds(ctx, []string{"pl-1", "pl-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls, "playlist order must not fragment the cache")
}

func TestRedisCachePropagatesUpstreamErrors(t *testing.T) {
	upstream := &countingSource{err: errors.New("catalog down")}
	cache, _ := setupCache(t, upstream)

	_, err := cache.LoadRounds(context.Background(), []string{"pl-1"})
	assert.Error(t, err)
}

func TestRedisCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	upstream := &countingSource{pool: []room.Round{{ID: "a"}}}
	cache, mr := setupCache(t, upstream)
	mr.Close()

	rounds, err := cache.LoadRounds(context.Background(), []string{"pl-1"})
	require.NoError(t, err, "a broken cache must not break loading")
	assert.Len(t, rounds, 1)
	assert.Equal(t, 1, upstream.calls)
}

func TestWithFallbackServesBuiltinRounds(t *testing.T) {
	ctx := context.Background()

	// Failing primary falls back.
	src := WithFallback(&countingSource{err: errors.New("down")}, nil)
	rounds, err := src.LoadRounds(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rounds)

	// Empty primary falls back too.
	src = WithFallback(&countingSource{}, nil)
	rounds, err = src.LoadRounds(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rounds)

	// A healthy primary wins.
	src = WithFallback(&countingSource{pool: []room.Round{{ID: "only"}}}, nil)
	rounds, err = src.LoadRounds(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, "only", rounds[0].ID)
}

func TestBuiltinRoundsAreWellFormed(t *testing.T) {
	rounds, err := BuiltinSource{}.LoadRounds(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, rounds)

	seen := map[string]bool{}
	for _, r := range rounds {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.MediaURI)
		assert.Greater(t, r.Year, 1900)
		assert.False(t, seen[r.ID], "duplicate builtin round id %s", r.ID)
		seen[r.ID] = true
	}
}
