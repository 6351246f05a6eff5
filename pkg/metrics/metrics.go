// Package metrics exports the gitdata Prometheus metrics as a
// node-exporter textfile.
// All metrics are defined in their respective packages (client, cache, ratelimit)
// to maintain modularity and avoid circular dependencies.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer collects the metrics registered via promauto for export.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path in the text exposition
// format, for the node exporter textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string) error {
	return writeTextfile(path, Gatherer)
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - github_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - github_rate_limit_limit (Gauge): Request budget of the current window
//   - github_rate_limit_warnings_total (Counter): Responses with less than 10% of the budget left
//   - github_rate_limit_headers_missing_total (Counter): Responses without rate limit headers
//
// Cache Metrics (pkg/cache):
//   - github_cache_hits_total (Counter): Cache file reads
//   - github_cache_misses_total (Counter): Reads without a cache file
//   - github_cache_bytes_written_total (Counter): Bytes written to cache files
//   - github_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - github_requests_total{status} (Counter): Total requests by HTTP status
//   - github_request_duration_seconds (Histogram): Request duration
//   - github_response_bytes_total (Counter): Response body bytes received
//   - github_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Example Prometheus Queries:
//
//   # Rate limit running low
//   github_rate_limit_remaining < github_rate_limit_limit / 10
//
//   # Request Error Rate
//   rate(github_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(github_request_duration_seconds_bucket[5m]))
//
//   # Bytes per request
//   github_response_bytes_total / ignoring(status) sum(github_requests_total)
