package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// QuoteStore is the cache the fetcher reads and writes serialized rates
// through. The Redis quote cache satisfies it.
type QuoteStore interface {
	Get(ctx context.Context, route string) ([]byte, error)
	Set(ctx context.Context, route string, value []byte, ttl time.Duration) error
}

// CachedFetcher decorates a RateFetcher with a shared cache. The TTL matches
// the quote staleness window, so a cache hit is always a rate the settlement
// would accept.
type CachedFetcher struct {
	inner RateFetcher
	store QuoteStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedFetcher creates a caching rate fetcher.
func NewCachedFetcher(inner RateFetcher, store QuoteStore, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{inner: inner, store: store, ttl: ttl, log: log}
}

// FetchRate returns the cached rate for a route, or fetches and caches one.
// Cache errors degrade to a direct fetch.
func (f *CachedFetcher) FetchRate(ctx context.Context, route string) (*Rate, error) {
	raw, err := f.store.Get(ctx, route)
	if err != nil {
		f.log.Warn().Err(err).Str("route", route).Msg("quote cache read failed")
	} else if raw != nil {
		var rate Rate
		if err := json.Unmarshal(raw, &rate); err == nil {
			return &rate, nil
		}
		f.log.Warn().Str("route", route).Msg("discarding malformed cached quote")
	}

	rate, err := f.inner.FetchRate(ctx, route)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(rate)
	if err != nil {
		return nil, fmt.Errorf("encode rate: %w", err)
	}
	if err := f.store.Set(ctx, route, encoded, f.ttl); err != nil {
		f.log.Warn().Err(err).Str("route", route).Msg("quote cache write failed")
	}
	return rate, nil
}
