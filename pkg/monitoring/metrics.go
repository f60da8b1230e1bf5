package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the session metrics
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDegraded = "degraded"
	OutcomeEmpty    = "empty"
	OutcomeCorrupt  = "corrupt"
	OutcomeExpired  = "expired"
	OutcomeDisposed = "disposed"
)

// MetricsCollector handles Prometheus metrics collection on its own registry
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authAttemptsTotal   *prometheus.CounterVec
	sessionRestores     *prometheus.CounterVec
	guardDecisions      *prometheus.CounterVec
	permissionsGranted  prometheus.Gauge
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code", "service"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "service"},
		),

		authAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of authentication attempts",
			},
			[]string{"method", "status", "service"},
		),

		sessionRestores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_restores_total",
				Help: "Total number of session restores by outcome",
			},
			[]string{"outcome", "service"},
		),

		guardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_decisions_total",
				Help: "Total number of access guard decisions",
			},
			[]string{"decision", "service"},
		),

		permissionsGranted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "session_permissions_granted",
				Help: "Number of permissions granted to the current session",
			},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.authAttemptsTotal,
		m.sessionRestores,
		m.guardDecisions,
		m.permissionsGranted,
		collectors.NewGoCollector(),
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(method, status string) {
	m.authAttemptsTotal.WithLabelValues(method, status, m.serviceName).Inc()
}

// RecordSessionRestore records the outcome of a restore-on-boot
func (m *MetricsCollector) RecordSessionRestore(outcome string) {
	m.sessionRestores.WithLabelValues(outcome, m.serviceName).Inc()
}

// RecordGuardDecision records an access guard decision
func (m *MetricsCollector) RecordGuardDecision(decision string) {
	m.guardDecisions.WithLabelValues(decision, m.serviceName).Inc()
}

// SetPermissionsGranted publishes the size of the current permission set
func (m *MetricsCollector) SetPermissionsGranted(count int) {
	m.permissionsGranted.Set(float64(count))
}

// Registry exposes the underlying registry, mainly for tests
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
