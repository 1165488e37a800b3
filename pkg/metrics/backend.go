package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics records calls made to the REST backend and the search index.
type BackendMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	breaker  *prometheus.GaugeVec
}

// NewBackendMetrics registers the outbound request metrics.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	if reg == nil {
		return &BackendMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of outbound backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Outbound backend requests by response status.",
	}, []string{"operation", "method", "status"})
	breaker := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backend_breaker_open",
		Help: "1 while the backend circuit breaker is open.",
	}, []string{"name"})
	reg.MustRegister(duration, requests, breaker)
	return &BackendMetrics{
		duration: duration,
		requests: requests,
		breaker:  breaker,
	}
}

// Observe records one finished request. status 0 means the request never got a response.
func (m *BackendMetrics) Observe(op, method string, status int, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	m.duration.WithLabelValues(op, method).Observe(duration.Seconds())
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(op, method, label).Inc()
}

// SetBreakerOpen flips the breaker gauge for the named breaker.
func (m *BackendMetrics) SetBreakerOpen(name string, open bool) {
	if m == nil || m.breaker == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	m.breaker.WithLabelValues(normalizeLabel(name)).Set(value)
}
