//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestCustomerCacheRoundTrip(t *testing.T) {
	client := newRedisClient(t)
	cache := NewCustomerCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "ACC-1")
	require.NoError(t, err)
	assert.False(t, ok)

	customer := &domain.Customer{ID: "c-1", AccountNumber: "ACC-1", Name: "Jane Doe", Phone: "555-0100"}
	require.NoError(t, cache.Set(ctx, customer))

	got, ok, err := cache.Get(ctx, "ACC-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", got.Name)

	ttl, err := client.TTL(ctx, customerKeyPrefix+"ACC-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, "ACC-1"))
	_, ok, err = cache.Get(ctx, "ACC-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
