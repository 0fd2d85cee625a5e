// Package metrics exposes Prometheus instrumentation for the fetch pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProviderRequests counts Overpass requests by layer and outcome.
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_provider_requests_total",
		Help: "Overpass API requests by layer and outcome.",
	}, []string{"layer", "status"})

	// ProviderRetries counts retried provider calls by reason.
	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_provider_retries_total",
		Help: "Provider retries by layer and reason (throttled, timeout, transport).",
	}, []string{"layer", "reason"})

	// FetchSessions counts finished per-area fetch sessions by result.
	FetchSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_fetch_sessions_total",
		Help: "Per-area fetch sessions by result (completed, cancelled, failed).",
	}, []string{"result"})

	// CacheHits counts provider cache hits per backend.
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_cache_hits_total",
		Help: "Provider response cache hits by backend.",
	}, []string{"backend"})

	// CacheMisses counts provider cache misses per backend.
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_cache_misses_total",
		Help: "Provider response cache misses by backend.",
	}, []string{"backend"})

	// FeaturesKept counts features surviving the boundary clip per layer.
	FeaturesKept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_features_kept_total",
		Help: "Features kept after boundary clipping by layer.",
	}, []string{"layer"})

	// FeaturesDropped counts features removed by the boundary clip per layer.
	FeaturesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "axoncity_features_dropped_total",
		Help: "Features dropped by boundary clipping by layer.",
	}, []string{"layer"})

	// ActiveAreas tracks the number of stored selection areas.
	ActiveAreas = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "axoncity_active_areas",
		Help: "Selection areas currently stored.",
	})
)

func init() {
	prometheus.MustRegister(
		ProviderRequests,
		ProviderRetries,
		FetchSessions,
		CacheHits,
		CacheMisses,
		FeaturesKept,
		FeaturesDropped,
		ActiveAreas,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
