package middleware

import (
	"net/http"

	appCtx "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/pkg/context"
)

// ClientIP records the caller address for audit lines. Mount it after
// chi's RealIP so proxy headers are already applied.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(appCtx.WithClientIP(r.Context(), clientIP(r))))
	})
}
