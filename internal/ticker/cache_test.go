package ticker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	price float64
	err   error
	delay time.Duration
}

func (f *countingFetcher) FetchTicker(_ context.Context, symbol string) (*PriceSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &PriceSnapshot{Symbol: symbol, Price: f.price, Timestamp: time.Now().UTC()}, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCacheServesWithinTTL(t *testing.T) {
	fetcher := &countingFetcher{price: 50000}
	cache := NewCache(fetcher, 5*time.Second)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	snap, ok := cache.Get(context.Background(), "BTCUSDT")
	if !ok {
		t.Fatal("expected snapshot on first fetch")
	}
	if snap.Price != 50000 {
		t.Errorf("expected price 50000, got %f", snap.Price)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fetcher.callCount())
	}

	// Just inside the TTL: served from cache, no second fetch.
	current = current.Add(4 * time.Second)
	if _, ok := cache.Get(context.Background(), "BTCUSDT"); !ok {
		t.Fatal("expected cached snapshot within TTL")
	}
	if fetcher.callCount() != 1 {
		t.Errorf("expected no second upstream call within TTL, got %d", fetcher.callCount())
	}

	// Exactly at the TTL the entry is expired, never served stale.
	current = current.Add(1 * time.Second)
	if _, ok := cache.Get(context.Background(), "BTCUSDT"); !ok {
		t.Fatal("expected refetched snapshot after expiry")
	}
	if fetcher.callCount() != 2 {
		t.Errorf("expected refetch after expiry, got %d calls", fetcher.callCount())
	}
}

func TestCacheSeparateEntriesPerSymbol(t *testing.T) {
	fetcher := &countingFetcher{price: 1}
	cache := NewCache(fetcher, 5*time.Second)

	cache.Get(context.Background(), "BTCUSDT")
	cache.Get(context.Background(), "ETHUSDT")
	cache.Get(context.Background(), "BTCUSDT")

	if fetcher.callCount() != 2 {
		t.Errorf("expected one upstream call per symbol, got %d", fetcher.callCount())
	}
}

func TestCacheCoalescesConcurrentMisses(t *testing.T) {
	fetcher := &countingFetcher{price: 50000, delay: 50 * time.Millisecond}
	cache := NewCache(fetcher, 5*time.Second)

	const waiters = 10
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := cache.Get(context.Background(), "BTCUSDT"); !ok {
				t.Error("expected snapshot from coalesced fetch")
			}
		}()
	}
	wg.Wait()

	if fetcher.callCount() != 1 {
		t.Errorf("expected concurrent misses to coalesce into 1 fetch, got %d", fetcher.callCount())
	}
}

func TestCacheFetchFailureReportedAsAbsent(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("connection refused")}
	cache := NewCache(fetcher, 5*time.Second)

	if _, ok := cache.Get(context.Background(), "BTCUSDT"); ok {
		t.Fatal("expected failed fetch to report absence")
	}

	// A failure is not cached; the next request retries upstream.
	cache.Get(context.Background(), "BTCUSDT")
	if fetcher.callCount() != 2 {
		t.Errorf("expected failure to not be cached, got %d calls", fetcher.callCount())
	}
}
