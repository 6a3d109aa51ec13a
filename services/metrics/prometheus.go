package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shankerdev/campus/core"
)

const namespace = "campus"

// Prometheus implements core.Metrics on its own registry, served by Handler.
type Prometheus struct {
	registry *prometheus.Registry

	emails     *prometheus.CounterVec
	attendance *prometheus.CounterVec
	hooks      *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

var _ core.Metrics = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Emails by kind and outcome (sent, suppressed, failed).",
		}, []string{"kind", "outcome"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance writes by transition (created, changed, unchanged).",
		}, []string{"transition"}),
		hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_commit_hook_failures_total",
			Help:      "Failed post-commit side effects by hook name.",
		}, []string{"hook"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.emails,
		m.attendance,
		m.hooks,
		m.requests,
	)
	return m
}

func (m *Prometheus) EmailDispatched(kind, outcome string) {
	m.emails.WithLabelValues(kind, outcome).Inc()
}

func (m *Prometheus) AttendanceMarked(transition string) {
	m.attendance.WithLabelValues(transition).Inc()
}

func (m *Prometheus) HookFailed(name string) {
	m.hooks.WithLabelValues(name).Inc()
}

// ObserveRequest records one served request.
func (m *Prometheus) ObserveRequest(route, method, status string, seconds float64) {
	m.requests.WithLabelValues(route, method, status).Observe(seconds)
}

func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
