// Package metrics holds the prometheus collectors of the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// CacheRequests counts cache lookups by key prefix and result (hit, miss, error).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"prefix", "result"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of emails handed to the email backend",
		},
		[]string{"backend", "status"}, // status: success, failed
	)
)

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordCacheRequest(prefix, result string) {
	CacheRequests.WithLabelValues(prefix, result).Inc()
}

func RecordEmail(backend string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	EmailsSent.WithLabelValues(backend, status).Inc()
}
