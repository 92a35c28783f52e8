package reset

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StartExpiredTokenSweeper periodically clears stale digests until ctx is
// done. Expiry is enforced on every read, so this is storage hygiene only.
func StartExpiredTokenSweeper(ctx context.Context, sw ExpiredTokenSweeper, interval time.Duration, lg zerolog.Logger) {
	if sw == nil || interval <= 0 {
		return
	}
	go func() {
		log := lg.With().Str("component", "reset_token_sweeper").Logger()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		SweepExpired(ctx, sw, log)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopped")
				return
			case <-ticker.C:
				SweepExpired(ctx, sw, log)
			}
		}
	}()
}

// SweepExpired runs one cleanup pass and returns the number of cleared rows.
func SweepExpired(ctx context.Context, sw ExpiredTokenSweeper, log zerolog.Logger) int64 {
	n, err := sw.ClearExpiredResetTokens(ctx, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("expired reset token cleanup failed")
		return 0
	}
	if n > 0 {
		log.Info().Int64("cleared", n).Msg("expired reset tokens cleared")
	}
	return n
}
