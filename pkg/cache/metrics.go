package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache files read successfully
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_hits_total",
			Help: "Total number of cache files read",
		},
	)

	// CacheMisses tracks lookups without a cache file
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheBytesWritten tracks bytes written to cache files
	CacheBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_bytes_written_total",
			Help: "Total number of bytes written to cache files",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
