package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/shopfront-backend/api/responses"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopfront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and reports the failures as 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopfront-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failures := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				failures[name] = "not configured"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failures))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
