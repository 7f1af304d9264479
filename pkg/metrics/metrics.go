package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "merchant_service"

// Metrics holds the HTTP and lifecycle collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	merchantsRegistered *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	kycDecisions        *prometheus.CounterVec
	quotaRejections     prometheus.Counter
	adminLogins         *prometheus.CounterVec
	emailFailures       *prometheus.CounterVec
	jobRuns             *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry, including Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		merchantsRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merchants_registered_total",
			Help:      "Merchant registrations by outcome.",
		}, []string{"outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merchant_status_transitions_total",
			Help:      "Applied merchant status transitions.",
		}, []string{"from", "to"}),
		kycDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kyc_decisions_total",
			Help:      "KYC decisions by result.",
		}, []string{"decision"}),
		quotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_quota_rejections_total",
			Help:      "Requests rejected because the merchant API quota was exhausted.",
		}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_logins_total",
			Help:      "Admin login attempts by outcome.",
		}, []string{"outcome"}),
		emailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_failures_total",
			Help:      "Best-effort emails that failed to send.",
		}, []string{"kind"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled job executions by outcome.",
		}, []string{"job", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.merchantsRegistered, m.statusTransitions, m.kycDecisions,
		m.quotaRejections, m.adminLogins, m.emailFailures, m.jobRuns,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// RequestFinished records one completed HTTP request. path should be the
// route template, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RequestFinished(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func (m *Metrics) MerchantRegistered(outcome string) {
	if m == nil {
		return
	}
	m.merchantsRegistered.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) KycDecision(decision string) {
	if m == nil {
		return
	}
	m.kycDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.quotaRejections.Inc()
}

func (m *Metrics) AdminLogin(outcome string) {
	if m == nil {
		return
	}
	m.adminLogins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EmailFailed(kind string) {
	if m == nil {
		return
	}
	m.emailFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) JobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}
