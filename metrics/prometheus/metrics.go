// Package prometheus provides Prometheus metrics for the voice core.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicekit"

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	// providerRequestDuration is a histogram of upstream provider call duration.
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of upstream provider API calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	// providerRequestsTotal is a counter of upstream provider calls.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of upstream provider API calls",
		},
		[]string{"provider", "operation", "status"},
	)

	// fallbacksTotal counts primary-to-fallback switches per capability.
	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of primary-to-fallback provider switches",
		},
		[]string{"capability"},
	)

	// streamChunksTotal counts audio chunks delivered to streaming consumers.
	streamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Total number of audio chunks delivered to streaming consumers",
		},
		[]string{"provider"},
	)

	// synthesizedBytesTotal counts synthesized audio bytes by provider.
	synthesizedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesized_bytes_total",
			Help:      "Total synthesized audio bytes delivered",
		},
		[]string{"provider"},
	)

	// healthCheckStatus is a gauge of the last health check verdict per service.
	healthCheckStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_check_status",
			Help:      "Last health check verdict per service (1=healthy, 0=unhealthy)",
		},
		[]string{"service"},
	)
)

// allMetrics lists every collector for registry registration.
var allMetrics = []prometheus.Collector{
	providerRequestDuration,
	providerRequestsTotal,
	fallbacksTotal,
	streamChunksTotal,
	synthesizedBytesTotal,
	healthCheckStatus,
}

// RecordProviderRequest records the duration and outcome of one upstream call.
func RecordProviderRequest(providerName, operation string, d time.Duration, err error) {
	providerRequestDuration.WithLabelValues(providerName, operation).Observe(d.Seconds())
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	providerRequestsTotal.WithLabelValues(providerName, operation, status).Inc()
}

// RecordFallback records a primary-to-fallback switch for a capability.
func RecordFallback(capability string) {
	fallbacksTotal.WithLabelValues(capability).Inc()
}

// RecordStreamChunk counts one delivered audio chunk of the given size.
func RecordStreamChunk(providerName string, bytes int) {
	streamChunksTotal.WithLabelValues(providerName).Inc()
	synthesizedBytesTotal.WithLabelValues(providerName).Add(float64(bytes))
}

// RecordHealthStatus records a health check verdict for a service.
func RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	healthCheckStatus.WithLabelValues(service).Set(value)
}
