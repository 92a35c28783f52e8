package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/middleware"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type PasswordResetHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	ValidateToken(w http.ResponseWriter, r *http.Request)
	Reset(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Reset  PasswordResetHandler

	// Limiter is the Redis fixed-window limiter. When nil, an in-process
	// per-IP limiter with the same budget is used instead.
	Limiter  middleware.RateLimiter
	RLLimit  int
	RLWindow time.Duration
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Reset == nil {
		return nil, fmt.Errorf("nil Reset handler")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/password-reset", func(r chi.Router) {
		limit := func(routeKey string) func(http.Handler) http.Handler {
			if deps.RLLimit <= 0 {
				return passthrough
			}
			if deps.Limiter == nil {
				return httprate.Limit(deps.RLLimit, deps.RLWindow,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						middleware.RateLimitedTotal.WithLabelValues(routeKey).Inc()
						response.WriteError(w, r, domain.ErrRateLimited(routeKey))
					}),
				)
			}
			return middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
				RouteKey: routeKey,
				Limit:    deps.RLLimit,
				Window:   deps.RLWindow,
			}, response.WriteError)
		}

		r.With(limit("pwreset_request")).Post("/request", deps.Reset.Request)
		r.With(limit("pwreset_validate")).Post("/validate-token", deps.Reset.ValidateToken)
		r.With(limit("pwreset_reset")).Post("/reset", deps.Reset.Reset)
	})

	return r, nil
}

func passthrough(next http.Handler) http.Handler { return next }
