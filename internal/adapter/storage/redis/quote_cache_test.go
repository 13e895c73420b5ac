package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewQuoteCache(client)
	ctx := context.Background()

	route := "pair-usdc-wegld"
	value := []byte(`{"numerator":1000000,"denominator":38500}`)

	// Get before set => nil
	result, err := cache.Get(ctx, route)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, route, value, 5*time.Minute)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, route)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestQuoteCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewQuoteCache(client)
	ctx := context.Background()

	route := "pair-usdc-wegld"
	err := cache.Set(ctx, route, []byte(`{"numerator":1,"denominator":1}`), 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, route)
	assert.NoError(t, err)
	assert.Nil(t, result, "stale quote should return nil")
}

func TestQuoteCache_OverwriteRoute(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewQuoteCache(client)
	ctx := context.Background()

	route := "pair-usdc-wegld"

	err := cache.Set(ctx, route, []byte("first"), 1*time.Hour)
	require.NoError(t, err)

	err = cache.Set(ctx, route, []byte("second"), 1*time.Hour)
	require.NoError(t, err)

	result, err := cache.Get(ctx, route)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), result)
}
