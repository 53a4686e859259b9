// Package metrics exposes the Prometheus registry used by reqstate.
// All metrics are defined in their respective packages (cache, executor,
// transport, state, request) via promauto and land on the default registry.
//
// This package provides the scrape handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer all reqstate metrics use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the Prometheus gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists every metric reqstate registers.
var Names = []string{
	"reqstate_cache_hits_total",
	"reqstate_cache_misses_total",
	"reqstate_cache_errors_total",
	"reqstate_inflight_requests",
	"reqstate_dedup_attach_total",
	"reqstate_call_aborts_total",
	"reqstate_transport_calls_total",
	"reqstate_transport_duration_seconds",
	"reqstate_transitions_total",
	"reqstate_stale_outcomes_total",
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - reqstate_cache_hits_total{backend} (Counter): Result cache hits by backend (memory, redis, sqlite)
//   - reqstate_cache_misses_total (Counter): Result cache misses
//   - reqstate_cache_errors_total{operation} (Counter): Store operation errors
//
// Executor Metrics (pkg/executor):
//   - reqstate_inflight_requests (Gauge): Keyed calls currently registered as in flight
//   - reqstate_dedup_attach_total (Counter): Requests that attached to an in-flight call
//   - reqstate_call_aborts_total (Counter): Calls aborted after their last handle was released
//
// Transport Metrics (pkg/transport):
//   - reqstate_transport_calls_total{outcome} (Counter): Calls by outcome (ok, http_error, network_error, canceled)
//   - reqstate_transport_duration_seconds (Histogram): Call duration
//
// State Metrics (pkg/state, pkg/request):
//   - reqstate_transitions_total{action} (Counter): Applied transitions by action
//   - reqstate_stale_outcomes_total (Counter): Outcomes discarded because the request moved on
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(reqstate_cache_hits_total[5m])) /
//   (sum(rate(reqstate_cache_hits_total[5m])) + sum(rate(reqstate_cache_misses_total[5m])))
//
//   # Dedup Rate
//   rate(reqstate_dedup_attach_total[5m]) / rate(reqstate_transport_calls_total[5m])
//
//   # Transport Error Rate
//   sum(rate(reqstate_transport_calls_total{outcome=~"http_error|network_error"}[5m]))
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(reqstate_transport_duration_seconds_bucket[5m]))
