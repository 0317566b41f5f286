package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestFetchJSON_CachesLoaderResult(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	userID := uuid.New()
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return summary{Count: 3, Label: "2024"}, nil
	}

	var first, second summary
	require.NoError(t, c.FetchJSON(ctx, userID, "summary:2024", &first, loader))
	require.NoError(t, c.FetchJSON(ctx, userID, "summary:2024", &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, summary{Count: 3, Label: "2024"}, first)
	assert.Equal(t, first, second)
}

func TestBump_InvalidatesOnlyThatUser(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	calls := map[uuid.UUID]int{}
	loaderFor := func(id uuid.UUID) func(context.Context) (interface{}, error) {
		return func(context.Context) (interface{}, error) {
			calls[id]++
			return summary{Count: calls[id]}, nil
		}
	}

	var dest summary
	require.NoError(t, c.FetchJSON(ctx, alice, "years", &dest, loaderFor(alice)))
	require.NoError(t, c.FetchJSON(ctx, bob, "years", &dest, loaderFor(bob)))

	require.NoError(t, c.Bump(ctx, alice))

	require.NoError(t, c.FetchJSON(ctx, alice, "years", &dest, loaderFor(alice)))
	assert.Equal(t, 2, dest.Count)
	require.NoError(t, c.FetchJSON(ctx, bob, "years", &dest, loaderFor(bob)))
	assert.Equal(t, 1, dest.Count)
}

func TestBuildKey_IncludesVersion(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	userID := uuid.New()

	key, err := c.BuildKey(ctx, userID, "summary", "2024")
	require.NoError(t, err)
	assert.Equal(t, "gehalt:"+userID.String()+":summary:2024:v1", key)

	require.NoError(t, c.Bump(ctx, userID))
	key, err = c.BuildKey(ctx, userID, "summary", "2024")
	require.NoError(t, err)
	assert.Equal(t, "gehalt:"+userID.String()+":summary:2024:v2", key)
}

func TestFetchJSON_LoaderErrorNotCached(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	userID := uuid.New()
	loadErr := errors.New("database down")

	var dest summary
	err := c.FetchJSON(ctx, userID, "summary", &dest, func(context.Context) (interface{}, error) {
		return nil, loadErr
	})

	assert.ErrorIs(t, err, loadErr)
	key, _ := c.BuildKey(ctx, userID, "summary")
	assert.False(t, mr.Exists(key))
}

func TestFetchJSON_NilCacheCallsLoader(t *testing.T) {
	var c *Cache
	calls := 0

	var dest summary
	for i := 0; i < 2; i++ {
		err := c.FetchJSON(context.Background(), uuid.New(), "summary", &dest, func(context.Context) (interface{}, error) {
			calls++
			return summary{Count: 7}, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, calls)
	assert.Equal(t, 7, dest.Count)
	assert.NoError(t, c.Bump(context.Background(), uuid.New()))
}

func TestFetchJSON_RequiresLoader(t *testing.T) {
	c, _ := setupCache(t)
	var dest summary
	err := c.FetchJSON(context.Background(), uuid.New(), "summary", &dest, nil)
	assert.Error(t, err)
}
