package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records outcomes of cart store operations.
type CartMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	resets   *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_success",
		Help: "Successful cart store operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_failure",
		Help: "Failed cart store operations.",
	}, []string{"operation"})
	resets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_stale_resets",
		Help: "Local cart resets triggered by a cart the backend no longer knows.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, resets)
	return &CartMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		resets:   resets,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CartMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *CartMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (c *CartMetrics) IncFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStaleReset counts a local reset caused by a vanished cart.
func (c *CartMetrics) IncStaleReset(op string) {
	if c == nil || c.resets == nil {
		return
	}
	c.resets.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
