package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound storefront requests by route pattern.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the inbound request metrics.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of storefront HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Storefront HTTP requests by response status.",
	}, []string{"route", "method", "status"})
	reg.MustRegister(duration, requests)
	return &HTTPMetrics{duration: duration, requests: requests}
}

// Observe records one served request. route is the router pattern, not the raw path.
func (m *HTTPMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.duration.WithLabelValues(route, method).Observe(duration.Seconds())
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
