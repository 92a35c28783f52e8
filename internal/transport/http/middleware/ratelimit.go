package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/redis"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
)

type WriteErrFunc func(w http.ResponseWriter, r *http.Request, err error)

type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

// RateLimitFixedWindow limits each client IP per route. Limiter errors fail
// open so a Redis outage does not take the reset flow down.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "unknown"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			bucket := windowBucket(time.Now(), cfg.Window)
			key := fmt.Sprintf("rl:%s:ip:%s:%d", cfg.RouteKey, clientIP(r), bucket)

			dec, err := limiter.AllowFixedWindow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				RateLimitedTotal.WithLabelValues(cfg.RouteKey).Inc()
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Round(time.Second).Seconds())))
				}
				writeErr(w, r, domain.ErrRateLimited(cfg.RouteKey))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func windowBucket(now time.Time, window time.Duration) int64 {
	sec := int64(window.Seconds())
	if sec <= 0 {
		sec = 60
	}
	return now.Unix() / sec
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already
// rewritten from trusted proxy headers.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
