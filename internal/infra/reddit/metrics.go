package reddit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client-side metrics for the transport chain. Registered on the default
// registry and exposed by the worker's metrics server.
var (
	tokenRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reddit_token_refreshes_total",
		Help: "Total number of OAuth2 access token refreshes performed.",
	})

	throttledRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reddit_throttled_requests_total",
		Help: "Total number of requests re-issued after a 429 response.",
	})

	throttleDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reddit_throttle_delay_seconds",
		Help:    "Duration of delays imposed by rate limit handling.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	listingPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reddit_listing_pages_total",
		Help: "Total number of listing pages fetched, by outcome.",
	}, []string{"outcome"})
)
