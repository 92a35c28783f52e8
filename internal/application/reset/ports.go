package reset

import (
	"context"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

/*
AccountStore
------------
Persistence port for the reset fields of an account.
Lookups return domain.ErrAccountNotFound / domain.ErrResetTokenInvalid on a
miss; anything else is a dependency failure.
*/
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	// FindByResetDigestValid matches digest AND expiry > now AND status = active.
	FindByResetDigestValid(ctx context.Context, digest string, now time.Time) (domain.Account, error)
	// UpdateResetToken overwrites any pending token.
	UpdateResetToken(ctx context.Context, accountID, digest string, expiresAt time.Time) error
	// ConsumeResetAndSetCredential sets the credential, clears both reset
	// fields and the lockout state in one conditional write guarded by the
	// same predicate as FindByResetDigestValid. A lost race returns
	// domain.ErrResetTokenInvalid.
	ConsumeResetAndSetCredential(ctx context.Context, accountID, digest, passwordHash string, now time.Time) error
}

/*
ExpiredTokenSweeper
-------------------
Optional storage hygiene; expiry is enforced on read regardless.
*/
type ExpiredTokenSweeper interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Message is a rendered email ready for dispatch.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

/*
Mailer
------
Outbound email port (SMTP, SES, broker hand-off or log in dev).
*/
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResetEmailBuilder renders the reset email for a recipient name and link.
type ResetEmailBuilder func(name, resetURL string) (subject, html, text string)
