package reset

import (
	"context"
	"strings"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

// ValidateToken confirms a secret is usable without consuming it.
func (s *Service) ValidateToken(ctx context.Context, secret string) (ValidateResult, error) {
	acct, err := s.lookupValid(ctx, secret)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{Message: ValidTokenMessage, Email: acct.Email}, nil
}

func (s *Service) lookupValid(ctx context.Context, secret string) (domain.Account, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return domain.Account{}, domain.ErrMissingField("token")
	}

	lookupCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	acct, err := s.accounts.FindByResetDigestValid(lookupCtx, Digest(secret), s.now())
	if err != nil {
		return domain.Account{}, asDependencyError(err)
	}
	return acct, nil
}
