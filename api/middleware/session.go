package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

type sessionLoader interface {
	Current(ctx context.Context, visitorID string) (*auth.Session, error)
}

// Session loads the visitor's auth session, refreshing it when due. A store failure
// degrades to an anonymous request.
func Session(loader sessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			visitorID := VisitorIDFromContext(ctx)
			if visitorID == "" || loader == nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := loader.Current(ctx, visitorID)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "session.load_failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if sess != nil {
				ctx = WithSession(ctx, sess)
				if logg != nil && sess.User.ID != 0 {
					ctx = logg.WithUserID(ctx, formatUserID(sess.User.ID))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
