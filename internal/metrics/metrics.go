// Package metrics provides Prometheus metrics for fetches and traversals.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modcache_fetch_total",
			Help: "Total number of upstream module fetches",
		},
		[]string{"status"},
	)

	fetchBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modcache_fetch_bytes_total",
			Help: "Total decoded bytes written to the cache from upstream",
		},
	)

	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modcache_cache_hits_total",
			Help: "Modules served from the disk cache without a fetch",
		},
	)

	traversalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modcache_traversal_duration_seconds",
			Help:    "Wall time of one dependency traversal",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch records one upstream fetch; status is "ok" or "error".
func RecordFetch(status string, bytes int) {
	fetchTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		fetchBytes.Add(float64(bytes))
	}
}

// RecordCacheHit records a module read from disk.
func RecordCacheHit() {
	cacheHits.Inc()
}

// ObserveTraversal records how long a traversal took.
func ObserveTraversal(outcome string, d time.Duration) {
	traversalDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
