package middleware

import (
	"net/http"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the configured origin policy to the JSON endpoints.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
