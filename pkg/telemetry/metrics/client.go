package metrics

import (
	"time"

	"nocturne-labs/doorman/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics tracks metrics related to the game API client.
//
// Metrics:
//   - doorman_game_api_requests_total: Request count by endpoint and status
//   - doorman_game_api_request_duration_seconds: Request latency histogram
//   - doorman_game_api_retries_total: Retry attempts by endpoint
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
}

// NewClientMetrics creates and registers client metrics with the provided registry.
func NewClientMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ClientMetrics {
	cm := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "api_requests_total",
				Help:      "Total number of game API requests",
			},
			[]string{"endpoint", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of game API requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"endpoint"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "api_retries_total",
				Help:      "Total number of game API request retries",
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(
		cm.requestsTotal,
		cm.requestDuration,
		cm.retriesTotal,
	)

	return cm
}

// RecordRequest records a completed API request.
//
// Parameters:
//   - endpoint: API endpoint ("new_game" or "decide_and_next")
//   - status: Outcome ("success", "error", "timeout")
//   - duration: Request duration including retries
func (cm *ClientMetrics) RecordRequest(endpoint, status string, duration time.Duration) {
	cm.requestsTotal.WithLabelValues(endpoint, status).Inc()
	cm.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry counts one retry attempt against an endpoint.
func (cm *ClientMetrics) RecordRetry(endpoint string) {
	cm.retriesTotal.WithLabelValues(endpoint).Inc()
}
