package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
)

type dataSource struct {
	URL string
}

type dataSourceBuilder struct{}

func (dataSourceBuilder) Key() string { return "jdbc" }

func (dataSourceBuilder) Build(props naming.Properties) (naming.ResourceFactory, error) {
	url, ok := props["url"]
	if !ok {
		return nil, fmt.Errorf("url property is required")
	}
	return naming.ResourceFactoryFunc(func(context.Context, *naming.ResourceInfo) (any, error) {
		return &dataSource{URL: url}, nil
	}), nil
}

func openRedis(t *testing.T) *RedisServices {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	builders := naming.NewBuilders()
	require.NoError(t, builders.Register("DataSource", dataSourceBuilder{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := OpenRedisServices(ctx, config.RedisConfig{
		URL:       "redis://localhost:6379/0",
		KeyPrefix: "binder:test:" + uuid.NewString() + ":",
	}, builders, logger.NewTestLogger())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := r.client.Keys(context.Background(), r.prefix+"*").Result()
		if len(keys) > 0 {
			r.client.Del(context.Background(), keys...)
		}
		_ = r.Close()
	})
	return r
}

func TestRedisServices(t *testing.T) {
	r := openRedis(t)
	ctx := context.Background()

	publish := func(url string, ranking int) int64 {
		ref, err := naming.BuildFactoryRef("DataSource", naming.Properties{"url": url}, r.builders)
		require.NoError(t, err)
		id, err := r.Publish(ctx, "orders", ranking, ref)
		require.NoError(t, err)
		return id
	}

	low := publish("postgres://low", 1)
	publish("postgres://high", 10)

	got, err := r.Services(ctx, "orders", "DataSource")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Ranking)

	obj, err := got[0].Object.(*naming.FactoryRef).CreateResource(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &dataSource{URL: "postgres://high"}, obj)

	got, err = r.Services(ctx, "orders", "Queue")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Services(ctx, "missing", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	removed, err := r.Withdraw(ctx, "orders", low)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.Withdraw(ctx, "orders", low)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = r.Services(ctx, "orders", "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRedisServices_Validation(t *testing.T) {
	r := NewRedisServices(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", naming.NewBuilders(), nil)
	defer r.Close()

	assert.Equal(t, "binder:services:", r.prefix)

	_, err := r.Publish(context.Background(), "", 0, nil)
	assert.ErrorIs(t, err, errors.ErrEmptyName)

	_, err = r.Publish(context.Background(), "orders", 0, nil)
	assert.ErrorIs(t, err, errors.ErrNilFactory)
}

func TestRedisServices_UndecodableMember(t *testing.T) {
	r := openRedis(t)
	ctx := context.Background()

	require.NoError(t, r.client.ZAdd(ctx, r.key("broken"), redis.Z{
		Score:  1,
		Member: `{"id":1,"type":"Queue","factory":{"type":"Queue","builder":"jms"}}`,
	}).Err())

	_, err := r.Services(ctx, "broken", "")
	assert.True(t, errors.IsIO(err))

	// Filtered out by type before decoding.
	got, err := r.Services(ctx, "broken", "DataSource")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenRedisServices_InvalidURL(t *testing.T) {
	_, err := OpenRedisServices(context.Background(), config.RedisConfig{URL: "://nope"}, naming.NewBuilders(), nil)
	assert.True(t, errors.IsConfiguration(err))
}
