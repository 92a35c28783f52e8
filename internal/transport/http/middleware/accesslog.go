package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
)

// AccessLog writes one line per request. Only the route pattern is logged,
// never the query string or body.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := newStatusWriter(w)
		start := time.Now()

		next.ServeHTTP(sw, r)

		logger.WithCtx(r.Context()).Info().
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("latency", time.Since(start)).
			Str("remote_ip", r.RemoteAddr).
			Msg("http_request")
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
