package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/harness/pkg/adapters/redis"
	"github.com/aretw0/harness/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Contract(t *testing.T) {
	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	cache := redis.NewFromClient(client)
	ports.RunResultCacheContract(t, cache)
}

func TestRedisCache_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	cache := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "(+ 1 2)", []byte("3")))

	_, ok, err := cache.Get(ctx, "(+ 1 2)")
	require.NoError(t, err)
	assert.True(t, ok)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, ok, err = cache.Get(ctx, "(+ 1 2)")
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")
}

func TestRedisCache_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	cache := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "input", []byte(`"x"`)))

	key := cache.Key("input")
	assert.Contains(t, key, "custom:app:")
	assert.True(t, mr.Exists(key), "Expected key with custom prefix to exist")

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, `"x"`, got)
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := backend.NewClient(&backend.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	cache := redis.NewFromClient(client)
	require.NoError(t, cache.Ping(context.Background()))

	mr.Close()

	_, _, err = cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "k", []byte("1")))
}
