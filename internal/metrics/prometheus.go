package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the voice gateway
type Metrics struct {
	registry *prometheus.Registry

	// Upload metrics
	UploadSize      prometheus.Histogram
	UploadsTooSmall prometheus.Counter

	// Upstream provider metrics
	UpstreamRequests  *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
	UpstreamThrottled *prometheus.CounterVec

	// Tool metrics
	ToolDispatches *prometheus.CounterVec
	OrdersPlaced   prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics on a dedicated registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Upload metrics
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebridge_upload_size_bytes",
			Help:    "Size of uploaded audio clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		UploadsTooSmall: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_uploads_too_small_total",
			Help: "Total number of uploads rejected as too short or silent",
		}),

		// Upstream provider metrics
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_upstream_requests_total",
			Help: "Total number of provider requests by outcome",
		}, []string{"provider", "kind", "outcome"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebridge_upstream_duration_seconds",
			Help:    "Duration of provider requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"provider", "kind"}),
		UpstreamThrottled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_upstream_throttled_total",
			Help: "Total number of requests refused by the upstream rate limit",
		}, []string{"kind"}),

		// Tool metrics
		ToolDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_tool_dispatches_total",
			Help: "Total number of tool invocations by name and outcome",
		}, []string{"tool", "outcome"}),
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_orders_placed_total",
			Help: "Total number of orders created",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Registry returns the registry holding these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordUpload records the size of an accepted audio upload
func (m *Metrics) RecordUpload(sizeBytes int) {
	m.UploadSize.Observe(float64(sizeBytes))
}

// RecordUploadTooSmall increments the rejected upload counter
func (m *Metrics) RecordUploadTooSmall() {
	m.UploadsTooSmall.Inc()
}

// RecordUpstream records one provider call. kind is transcription, completion,
// synthesis or tracking.
func (m *Metrics) RecordUpstream(provider, kind string, err error, durationSeconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.UpstreamRequests.WithLabelValues(provider, kind, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(provider, kind).Observe(durationSeconds)
}

// RecordThrottled increments the rate-limited counter
func (m *Metrics) RecordThrottled(kind string) {
	m.UpstreamThrottled.WithLabelValues(kind).Inc()
}

// RecordToolDispatch records a tool invocation. outcome is ok, error_result,
// invalid_arguments or unknown.
func (m *Metrics) RecordToolDispatch(tool, outcome string) {
	m.ToolDispatches.WithLabelValues(tool, outcome).Inc()
}

// RecordOrderPlaced increments the orders counter
func (m *Metrics) RecordOrderPlaced() {
	m.OrdersPlaced.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
