package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const readyTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once Redis answers.
func HealthReady(cfg *config.Config, redis Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := redis.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
