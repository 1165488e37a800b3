package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

// ErrorPage renders err as an HTML page.
type ErrorPage func(w http.ResponseWriter, r *http.Request, err error)

// Recoverer turns a panic into a 500. JSON endpoints under /api get the error envelope,
// everything else gets page when set.
func Recoverer(logg *logger.Logger, page ErrorPage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec, "path": r.URL.Path})
					logg.Error(ctx, "panic.recovered", err)
				}
				typed := pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic")
				if page == nil || strings.HasPrefix(r.URL.Path, "/api/") {
					responses.WriteError(ctx, logg, w, typed)
					return
				}
				page(w, r.WithContext(ctx), typed)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
