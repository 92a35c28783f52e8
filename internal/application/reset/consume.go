package reset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

// Reset consumes secret and sets newPassword. Both reset fields are cleared
// in the same write that changes the credential.
func (s *Service) Reset(ctx context.Context, secret, newPassword string) error {
	if strings.TrimSpace(secret) == "" {
		return domain.ErrMissingField("token")
	}
	if newPassword == "" {
		return domain.ErrMissingField("newPassword")
	}
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return domain.ErrWeakPassword(fmt.Sprintf("min length %d", MinPasswordLength))
	}

	acct, err := s.lookupValid(ctx, secret)
	if err != nil {
		if domain.Is(err, "invalid_or_expired_token") {
			s.audit(ctx, "password_reset_rejected", map[string]string{"reason": "invalid_or_expired"})
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.ErrHashFailed(err)
	}

	writeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	digest := Digest(strings.TrimSpace(secret))
	if err := s.accounts.ConsumeResetAndSetCredential(writeCtx, acct.ID, digest, hash, s.now()); err != nil {
		if domain.Is(err, "invalid_or_expired_token") {
			s.audit(ctx, "password_reset_rejected", map[string]string{
				"account_id": acct.ID,
				"reason":     "consumed_concurrently",
			})
		}
		return asDependencyError(err)
	}

	s.audit(ctx, "password_reset_completed", map[string]string{
		"account_id": acct.ID,
		"email":      acct.Email,
	})
	return nil
}
