package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client)
}

func TestRedisCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, NamespaceRetrieval, "deal-1:q", map[string]string{"answer": "42"}, time.Minute)
	require.NoError(t, err)

	var got map[string]string
	hit, err := c.Get(ctx, NamespaceRetrieval, "deal-1:q", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "42", got["answer"])
}

func TestRedisCache_Miss(t *testing.T) {
	c := newTestCache(t)
	var got map[string]string
	hit, err := c.Get(context.Background(), NamespaceTool, "missing", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRedisCache_Delete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, NamespaceSummary, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, NamespaceSummary, "k"))

	var got string
	hit, err := c.Get(ctx, NamespaceSummary, "k", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRetrievalKey_Deterministic(t *testing.T) {
	a := RetrievalKey("deal-1", "what is the revenue?")
	b := RetrievalKey("deal-1", "what is the revenue?")
	c := RetrievalKey("deal-1", "what is churn?")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
