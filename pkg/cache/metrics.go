package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks result cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqstate_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"backend"}, // "memory", "redis", "sqlite"
	)

	// CacheMisses tracks result cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reqstate_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqstate_cache_errors_total",
			Help: "Total number of result cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "exists", "clear"
	)
)
