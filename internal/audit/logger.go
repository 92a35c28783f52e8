package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/pkg/context"
)

// Logger provides structured audit logging for password reset events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record writes one audit line. The "email" field is masked; the reset
// secret must never be passed in fields.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	evt := l.log.Info()
	if strings.HasSuffix(action, "_rejected") || strings.HasSuffix(action, "_inactive_account") {
		evt = l.log.Warn()
	}
	evt = evt.Str("action", action)
	for k, v := range fields {
		if k == "email" {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	if ip := appCtx.GetClientIP(ctx); ip != "" {
		evt = evt.Str("ip", ip)
	}
	evt.Msg("audit")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:1] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
