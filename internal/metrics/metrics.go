// Package metrics exposes Prometheus collectors for the monitoring API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DashboardRequests counts dashboard calls by action and outcome
	// (ok, soft_fail, bad_request).
	DashboardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botwatch_dashboard_requests_total",
		Help: "Dashboard requests by action and outcome.",
	}, []string{"action", "outcome"})

	// TickerCacheHits counts live price lookups served from the TTL cache.
	TickerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botwatch_ticker_cache_hits_total",
		Help: "Live price lookups served from cache.",
	})

	// TickerCacheMisses counts lookups that had to go upstream.
	TickerCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botwatch_ticker_cache_misses_total",
		Help: "Live price lookups that required an outbound fetch.",
	})

	// TickerFetchFailures counts outbound fetches that returned no usable
	// quote (transport, decode or feed-level errors).
	TickerFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botwatch_ticker_fetch_failures_total",
		Help: "Outbound ticker fetches that failed.",
	})
)
