package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Swap Build Metrics
	swapBuildsTotal          *prometheus.CounterVec
	swapBuildDuration        *prometheus.HistogramVec
	swapAccountsCreatedTotal *prometheus.CounterVec
	swapPaymentVolumeBase    *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// Event Publishing Metrics
	eventsPublishedTotal  *prometheus.CounterVec
	eventsPublishDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Swap Build Metrics
		swapBuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_builds_total",
				Help: "Total number of swap transaction builds by payment token and status",
			},
			[]string{"token", "status"},
		),
		swapBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swap_build_duration_seconds",
				Help:    "Duration of swap transaction builds in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"token"},
		),
		swapAccountsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_accounts_created_total",
				Help: "Total number of builds that included a destination account creation",
			},
			[]string{"token"},
		),
		swapPaymentVolumeBase: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_payment_volume_base_units_total",
				Help: "Cumulative payment-leg volume in token base units by payment token",
			},
			[]string{"token"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method and status code",
			},
			[]string{"handler", "method", "status"},
		),

		// Event Publishing Metrics
		eventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_events_published_total",
				Help: "Total number of swap events published to NATS by status",
			},
			[]string{"status"},
		),
		eventsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swap_events_publish_duration_seconds",
				Help:    "Duration of NATS publish calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordSwapBuild records a swap transaction build attempt.
func (m *Metrics) RecordSwapBuild(token, status string, duration float64) {
	m.swapBuildsTotal.WithLabelValues(token, status).Inc()
	m.swapBuildDuration.WithLabelValues(token).Observe(duration)
}

// RecordAccountCreation records a build that prepended a create-account instruction.
func (m *Metrics) RecordAccountCreation(token string) {
	m.swapAccountsCreatedTotal.WithLabelValues(token).Inc()
}

// RecordPaymentVolume adds the payment-leg amount (base units) to the volume counter.
func (m *Metrics) RecordPaymentVolume(token string, baseUnits uint64) {
	m.swapPaymentVolumeBase.WithLabelValues(token).Add(float64(baseUnits))
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := strconv.Itoa(statusCode)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
}

// RecordEventPublished records a NATS publish attempt.
func (m *Metrics) RecordEventPublished(status string, duration float64) {
	m.eventsPublishedTotal.WithLabelValues(status).Inc()
	m.eventsPublishDuration.WithLabelValues().Observe(duration)
}
