package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	key, err := c.BuildKey(ctx, "reports", "tb", "1")
	require.NoError(t, err)
	require.Equal(t, "reports:tb:1:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Value: "first"}, nil
	}
	var out payload
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, "first", out.Value)
	require.Equal(t, 1, calls)
}

func TestBumpChangesKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	before, err := c.BuildKey(ctx, "reports", "tb")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "reports", "tb")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestFetchJSONWithoutClientCallsLoader(t *testing.T) {
	var c *Cache
	calls := 0
	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		calls++
		return payload{Value: "direct"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "direct", out.Value)
	require.Equal(t, 1, calls)
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("boom")
	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}
