package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors exported on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	breaches        *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	sweepErrors     prometheus.Counter
	notifyFailures  *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grievance_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		breaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_sla_breaches_detected_total",
			Help: "SLA breaches recorded by the monitor.",
		}, []string{"type"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_escalations_total",
			Help: "Applied escalations by trigger.",
		}, []string{"trigger"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_sla_sweep_duration_seconds",
			Help:    "Duration of a full SLA sweep.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grievance_sla_sweep_ticket_errors_total",
			Help: "Tickets that failed evaluation during a sweep.",
		}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_notification_failures_total",
			Help: "Notification deliveries that failed.",
		}, []string{"template"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.breaches,
		m.escalations,
		m.sweepDuration,
		m.sweepErrors,
		m.notifyFailures,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordBreach counts a newly recorded breach.
func (m *Metrics) RecordBreach(breachType string) {
	if m == nil {
		return
	}
	m.breaches.WithLabelValues(breachType).Inc()
}

// RecordEscalation counts an applied escalation.
func (m *Metrics) RecordEscalation(trigger string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(trigger).Inc()
}

// RecordSweep observes one finished sweep.
func (m *Metrics) RecordSweep(duration time.Duration, ticketErrors int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepErrors.Add(float64(ticketErrors))
}

// RecordNotificationFailure counts a failed delivery.
func (m *Metrics) RecordNotificationFailure(template string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(template).Inc()
}
