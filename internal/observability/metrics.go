// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the evinsight server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ProviderBuckets covers provider call latencies from 100ms up to the 30s range.
var ProviderBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30}

var (
	// RequestsTotal counts HTTP requests by method, route pattern and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evinsight_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evinsight_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ProviderAttemptsTotal counts adapter attempts. Outcome is "success" or an error kind.
	ProviderAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evinsight_provider_attempts_total",
			Help: "Provider attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency records adapter attempt latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evinsight_provider_latency_seconds",
			Help:    "Provider attempt latency",
			Buckets: ProviderBuckets,
		},
		[]string{"provider"},
	)

	// AnalysesTotal counts completed analyses by the provider that produced the result.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evinsight_analyses_total",
			Help: "Completed customer analyses",
		},
		[]string{"provider", "fallback"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ProviderAttemptsTotal,
		ProviderLatency,
		AnalysesTotal,
	)
}
