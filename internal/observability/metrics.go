// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Provider metrics
	ProviderRequests *prometheus.CounterVec // by provider
	ProviderFailures *prometheus.CounterVec // by provider, kind
	FetchRetries     prometheus.Counter

	// Refresh-cycle metrics
	RefreshDuration       prometheus.Histogram
	LastSuccessfulRefresh prometheus.Gauge
	SymbolsCached         prometheus.Gauge
	SymbolsFetched        prometheus.Gauge
	SymbolsFailed         prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered on the
// default registry. Call once per process.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_market_lab"
	}

	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache reads answered within the staleness bound",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache reads that required a provider fetch",
		}),
		ProviderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of provider fetch attempts",
		}, []string{"provider"}),
		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Total number of provider fetch failures by failure kind",
		}, []string{"provider", "kind"}),
		FetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Total number of backoff retries across all providers",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of full dashboard refresh cycles",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last fully successful refresh",
		}),
		SymbolsCached: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "symbols_cached",
			Help:      "Symbols served from cache in the last refresh",
		}),
		SymbolsFetched: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "symbols_fetched",
			Help:      "Symbols newly fetched in the last refresh",
		}),
		SymbolsFailed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "symbols_failed",
			Help:      "Symbols that failed every provider in the last refresh",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
