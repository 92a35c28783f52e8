package postgres

import (
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

type accountRow struct {
	ID                  string
	Email               string
	Name                string
	Status              string
	PasswordHash        string
	ResetTokenDigest    *string
	ResetTokenExpiresAt *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
	PasswordChangedAt   *time.Time
}

const accountColumns = `id, email, name, status, password_hash, reset_token_digest, reset_token_expires_at,
       failed_login_attempts, locked_until, password_changed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row rowScanner) (accountRow, error) {
	var ar accountRow
	err := row.Scan(
		&ar.ID,
		&ar.Email,
		&ar.Name,
		&ar.Status,
		&ar.PasswordHash,
		&ar.ResetTokenDigest,
		&ar.ResetTokenExpiresAt,
		&ar.FailedLoginAttempts,
		&ar.LockedUntil,
		&ar.PasswordChangedAt,
	)
	return ar, err
}

// toDomainAccount maps a row and rejects records that break the reset
// field pairing.
func toDomainAccount(ar accountRow) (domain.Account, error) {
	a := domain.Account{
		ID:                  ar.ID,
		Email:               ar.Email,
		Name:                ar.Name,
		Status:              domain.AccountStatus(ar.Status),
		PasswordHash:        ar.PasswordHash,
		ResetTokenDigest:    ar.ResetTokenDigest,
		ResetTokenExpiresAt: ar.ResetTokenExpiresAt,
		FailedLoginAttempts: ar.FailedLoginAttempts,
		LockedUntil:         ar.LockedUntil,
		PasswordChangedAt:   ar.PasswordChangedAt,
	}
	if err := a.Validate(); err != nil {
		return domain.Account{}, domain.ErrCorruptAccount(err)
	}
	return a, nil
}
