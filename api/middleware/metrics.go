package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics observes every request under its chi route pattern so path parameters do
// not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.Observe(route, r.Method, rec.status, time.Since(start))
		})
	}
}
