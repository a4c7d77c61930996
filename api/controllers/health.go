package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/extrachill/marketplace-settlement/api/responses"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Settlement-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Settlement-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		ready := true
		for name, p := range map[string]pinger{"postgres": db, "redis": cache} {
			if p == nil {
				checks[name] = "disabled"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				ready = false
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "dependency", name), "health.ready.ping_failed")
				}
			}
		}
		if !ready {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
