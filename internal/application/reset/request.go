package reset

import (
	"context"
	"errors"
	"strings"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Request issues a new reset token for email and mails the link.
// Unknown emails get the same response as known ones.
func (s *Service) Request(ctx context.Context, email string) (RequestResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return RequestResult{}, domain.ErrMissingField("email")
	}

	generic := RequestResult{Message: GenericRequestMessage}

	lookupCtx, cancel := s.storeCtx(ctx)
	acct, err := s.accounts.FindByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		if domain.Is(err, "account_not_found") {
			s.audit(ctx, "password_reset_unknown_email", map[string]string{"email": email})
			return generic, nil
		}
		return RequestResult{}, asDependencyError(err)
	}

	if !acct.IsActive() {
		s.audit(ctx, "password_reset_inactive_account", map[string]string{
			"account_id": acct.ID,
			"status":     string(acct.Status),
		})
		return RequestResult{}, domain.ErrAccountInactive()
	}

	tok, err := IssuePasswordResetToken(s.tokenTTL, s.now())
	if err != nil {
		return RequestResult{}, domain.ErrRandomFailed(err)
	}

	updateCtx, cancel := s.storeCtx(ctx)
	err = s.accounts.UpdateResetToken(updateCtx, acct.ID, tok.Digest, tok.ExpiresAt)
	cancel()
	if err != nil {
		return RequestResult{}, asDependencyError(err)
	}

	resetURL := s.resetBaseURL + tok.Secret
	subject, html, text := s.render(displayName(acct), resetURL)

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	err = s.mailer.Send(mailCtx, Message{
		To:      acct.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	cancel()
	if err != nil {
		return RequestResult{}, domain.ErrEmailDispatchFailed(err)
	}

	s.audit(ctx, "password_reset_requested", map[string]string{
		"account_id": acct.ID,
		"email":      acct.Email,
	})

	if s.exposeDebug {
		generic.Debug = &DebugInfo{
			Token:     tok.Secret,
			ResetURL:  resetURL,
			ExpiresAt: tok.ExpiresAt,
		}
	}
	return generic, nil
}

func displayName(a domain.Account) string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	if at := strings.IndexByte(a.Email, '@'); at > 0 {
		return a.Email[:at]
	}
	return a.Email
}

// asDependencyError keeps domain errors as they are and classifies anything
// else (driver errors, deadlines) as a store failure.
func asDependencyError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrDBUnavailable(err)
}
