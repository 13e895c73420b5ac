package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// QuoteCache caches serialized oracle quotes per pair route. Entries expire
// after the quote staleness window, so a cached quote is always one the
// settlement would have accepted anyway.
type QuoteCache struct {
	client *goredis.Client
	prefix string
}

// NewQuoteCache creates a new Redis-backed quote cache.
func NewQuoteCache(client *goredis.Client) *QuoteCache {
	return &QuoteCache{
		client: client,
		prefix: "quote:",
	}
}

// Get retrieves a cached quote by route.
// Returns nil, nil if the route has no fresh quote.
func (c *QuoteCache) Get(ctx context.Context, route string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+route).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis quote get: %w", err)
	}
	return val, nil
}

// Set stores a quote for a route with TTL.
func (c *QuoteCache) Set(ctx context.Context, route string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+route, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis quote set: %w", err)
	}
	return nil
}
