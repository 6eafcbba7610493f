package ticker

import (
	"context"
	"sync"
	"time"

	"github.com/botwatch/botwatch-api/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Fetcher fetches a live snapshot for one symbol.
type Fetcher interface {
	FetchTicker(ctx context.Context, symbol string) (*PriceSnapshot, error)
}

// Cache is a per-symbol TTL cache in front of the live feed. An entry is
// valid only while now - fetchedAt < ttl; an expired entry is treated as
// absent, never returned stale. Concurrent misses for the same symbol are
// coalesced into one outbound fetch.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snapshot  *PriceSnapshot
	fetchedAt time.Time
}

// NewCache creates a cache over the given fetcher. A fresh cache starts
// cold; the first request per symbol always goes upstream.
func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached snapshot for the symbol, fetching from the feed on
// a miss. Every failure class upstream is reported as absent: the caller is
// expected to fall back to stored data.
func (c *Cache) Get(ctx context.Context, symbol string) (*PriceSnapshot, bool) {
	if snap, ok := c.cached(symbol); ok {
		metrics.TickerCacheHits.Inc()
		return snap, true
	}
	metrics.TickerCacheMisses.Inc()

	v, err, _ := c.group.Do(symbol, func() (interface{}, error) {
		// A coalesced waiter may arrive after the winner refreshed the entry.
		if snap, ok := c.cached(symbol); ok {
			return snap, nil
		}

		snap, err := c.fetcher.FetchTicker(ctx, symbol)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[symbol] = cacheEntry{snapshot: snap, fetchedAt: c.now()}
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		metrics.TickerFetchFailures.Inc()
		log.Warn().Err(err).Str("symbol", symbol).Msg("live price unavailable, falling back to stored data")
		return nil, false
	}
	return v.(*PriceSnapshot), true
}

func (c *Cache) cached(symbol string) (*PriceSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.snapshot, true
}
