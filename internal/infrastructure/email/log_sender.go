package email

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
)

// LogSender is the development mailer. It records that a message would have
// been sent but never writes the body, which carries the reset link.
type LogSender struct {
	lg zerolog.Logger
}

func NewLogSender(lg zerolog.Logger) *LogSender {
	return &LogSender{lg: lg.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(ctx context.Context, msg reset.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lg.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("email suppressed (log sender)")
	return nil
}
