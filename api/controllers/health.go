package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

const appEnvHeader = "X-Hungerwood-Env"

// Pinger is the readiness surface a dependency exposes.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(appEnvHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency readiness. The endpoint stays 200 as
// long as the process serves; individual checks carry their own status.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, backend Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(appEnvHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range map[string]Pinger{"db": db, "redis": redis, "backend": backend} {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		status := "ready"
		if !healthy {
			status = "degraded"
		}
		responses.WriteSuccess(w, map[string]any{"status": status, "checks": checks})
	}
}
