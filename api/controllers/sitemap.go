package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/internal/sitemap"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

// Sitemap serves /sitemap.xml.
func Sitemap(builder SitemapRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := builder.Render(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set("Cache-Control", sitemap.CacheControl)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
