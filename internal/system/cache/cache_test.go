package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/system/config"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, ViewCacheInterface) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisViewCache(client, "test", time.Minute)
}

func TestRedisViewCache_SetGetRevalidate(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.GetPersonView(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetPersonView(ctx, 42, []byte(`{"scope":"all_orgs"}`)))
	data, ok, err := c.GetPersonView(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"scope":"all_orgs"}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL("test:person:42:view"))

	require.NoError(t, c.RevalidatePerson(ctx, 42))
	assert.False(t, mr.Exists("test:person:42:view"))
}

func TestRedisViewCache_QueuePageRevalidation(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.GetQueuePage(ctx, "pending")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetQueuePage(ctx, "pending", []byte(`{"total":1}`)))
	data, ok, err := c.GetQueuePage(ctx, "pending")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"total":1}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL("test:queue:0:pending"))

	require.NoError(t, c.RevalidateQueue(ctx))
	_, ok, err = c.GetQueuePage(ctx, "pending")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetQueuePage(ctx, "pending", []byte(`{"total":0}`)))
	assert.True(t, mr.Exists("test:queue:1:pending"))
}

func TestNewViewCache(t *testing.T) {
	c, err := NewViewCache(context.Background(), config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, noopCache{}, c)

	mr := miniredis.RunT(t)
	c, err = NewViewCache(context.Background(), config.CacheConfig{Enabled: true, Address: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.RevalidateQueue(context.Background()))

	mr.Close()
	_, err = NewViewCache(context.Background(), config.CacheConfig{Enabled: true, Address: mr.Addr()})
	assert.Error(t, err)
}
