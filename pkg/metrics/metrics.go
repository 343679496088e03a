// Package metrics documents the Prometheus metrics exposed by the Kolada
// client. All metrics are defined in their owning packages (client,
// pagination) via promauto to keep registration next to the code that
// drives them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer used by the Kolada client. All
// metrics register automatically via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - kolada_requests_total{endpoint, status} (Counter): requests by endpoint and outcome
//   - kolada_request_duration_seconds{endpoint} (Histogram): request duration
//   - kolada_errors_total{class} (Counter): errors by class (api, rate_limit, network)
//   - kolada_throttle_wait_seconds (Histogram): time spent in the rate throttle
//
// Retry Metrics (pkg/client):
//   - kolada_retries_total{error_class} (Counter): retry attempts
//   - kolada_retry_backoff_seconds{error_class} (Histogram): backoff durations
//   - kolada_retry_exhausted_total{error_class} (Counter): calls that ran out of attempts
//
// Pagination Metrics (pkg/pagination):
//   - kolada_pages_fetched_total{endpoint} (Counter): pages accumulated
//   - kolada_batches_total{endpoint, status} (Counter): batch sub-requests by outcome (ok, failed)
//
// Example Prometheus Queries:
//
//   # Request error rate
//   rate(kolada_errors_total[5m])
//
//   # Share of batch sub-requests that failed
//   sum(rate(kolada_batches_total{status="failed"}[5m])) /
//   sum(rate(kolada_batches_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(kolada_request_duration_seconds_bucket[5m]))
//
//   # Time lost to throttling
//   rate(kolada_throttle_wait_seconds_sum[5m])
