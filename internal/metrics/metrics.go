// Package metrics owns the Prometheus registry of the API server and the
// worker. Every recording method is safe on a nil *Metrics, which disables
// collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "famspese"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests          *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec
	paymentsRecorded      *prometheus.CounterVec
	installmentsGenerated prometheus.Counter
	paymentsExported      prometheus.Counter
	exportFailures        prometheus.Counter
	publishFailures       *prometheus.CounterVec
	rateLimited           prometheus.Counter
}

// New creates a registry with the Go and process collectors plus the
// application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded, split by linked or stand-alone.",
		}, []string{"kind"}),
		installmentsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_generated_total",
			Help:      "Planned expense installments created by the generator.",
		}),
		paymentsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_exported_total",
			Help:      "Payments appended to the spreadsheet.",
		}),
		exportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_export_failures_total",
			Help:      "Failed spreadsheet appends.",
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amqp_publish_failures_total",
			Help:      "Events that could not be published, by event type.",
		}, []string{"event"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.paymentsRecorded,
		m.installmentsGenerated,
		m.paymentsExported,
		m.exportFailures,
		m.publishFailures,
		m.rateLimited,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) PaymentRecorded(standalone bool) {
	if m == nil {
		return
	}
	kind := "linked"
	if standalone {
		kind = "standalone"
	}
	m.paymentsRecorded.WithLabelValues(kind).Inc()
}

func (m *Metrics) InstallmentsGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.installmentsGenerated.Add(float64(n))
}

func (m *Metrics) PaymentExported() {
	if m == nil {
		return
	}
	m.paymentsExported.Inc()
}

func (m *Metrics) ExportFailed() {
	if m == nil {
		return
	}
	m.exportFailures.Inc()
}

func (m *Metrics) PublishFailed(event string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
