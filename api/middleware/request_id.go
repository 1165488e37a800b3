package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

// RequestID propagates an inbound request id, or mints one, into the response header and
// the log context. Ids that are too long or carry unexpected characters are replaced.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
