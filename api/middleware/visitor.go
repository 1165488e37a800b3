package middleware

import (
	"net/http"
	"time"

	pkgAuth "github.com/angelmondragon/shopster-storefront/pkg/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

// Visitor identifies the browser through a signed cookie, issuing a new identity when
// the cookie is missing or fails verification.
func Visitor(cfg config.VisitorConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return visitor(cfg, logg, time.Now)
}

func visitor(cfg config.VisitorConfig, logg *logger.Logger, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var visitorID string
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				claims, err := pkgAuth.ParseVisitorToken(cfg, cookie.Value)
				if err == nil {
					visitorID = claims.VisitorID()
				} else if logg != nil {
					logg.Warn(logg.WithError(ctx, err), "visitor.cookie.invalid")
				}
			}

			if visitorID == "" {
				visitorID = pkgAuth.NewVisitorID()
				token, err := pkgAuth.MintVisitorToken(cfg, now(), visitorID)
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "visitor.cookie.mint_failed", err)
					}
				} else {
					http.SetCookie(w, &http.Cookie{
						Name:     cfg.CookieName,
						Value:    token,
						Path:     "/",
						MaxAge:   int(cfg.TTL.Seconds()),
						HttpOnly: true,
						Secure:   cfg.SecureCookie,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			ctx = WithVisitorID(ctx, visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
