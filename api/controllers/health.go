package controllers

import (
	"context"
	"net/http"

	"github.com/bluewud/storefront-backend/api/responses"
	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/logger"
)

const envHeader = "X-Storefront-Env"

// Pinger is the readiness contract backing dependencies satisfy.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and reports per-dependency
// status. Any failure yields a 503 so the load balancer stops routing here.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		check := func(name string, p Pinger) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+name, err)
				}
				return
			}
			checks[name] = "up"
		}

		check("postgres", db)
		check("redis", redis)

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}
