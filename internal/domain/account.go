package domain

import (
	"errors"
	"time"
)

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
	StatusDeleted   AccountStatus = "deleted"
)

func IsValidStatus(s string) bool {
	switch AccountStatus(s) {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeleted:
		return true
	default:
		return false
	}
}

// Account is the slice of the maintenance-tracker user record the reset flow
// reads and writes. The reset fields are set and cleared together.
type Account struct {
	ID           string
	Email        string
	Name         string
	Status       AccountStatus
	PasswordHash string

	ResetTokenDigest    *string
	ResetTokenExpiresAt *time.Time

	FailedLoginAttempts int
	LockedUntil         *time.Time
	PasswordChangedAt   *time.Time
}

var (
	errDigestWithoutExpiry = errors.New("reset token digest set without expiry")
	errExpiryWithoutDigest = errors.New("reset token expiry set without digest")
)

// Validate checks the invariants a stored record must satisfy.
func (a Account) Validate() error {
	if a.ID == "" {
		return errors.New("account id is empty")
	}
	if !IsValidStatus(string(a.Status)) {
		return errors.New("unknown account status: " + string(a.Status))
	}
	if a.ResetTokenDigest != nil && a.ResetTokenExpiresAt == nil {
		return errDigestWithoutExpiry
	}
	if a.ResetTokenDigest == nil && a.ResetTokenExpiresAt != nil {
		return errExpiryWithoutDigest
	}
	return nil
}

func (a Account) IsActive() bool { return a.Status == StatusActive }

// HasPendingReset reports whether a stored digest is still usable at now.
func (a Account) HasPendingReset(now time.Time) bool {
	if a.ResetTokenDigest == nil || a.ResetTokenExpiresAt == nil {
		return false
	}
	return now.Before(*a.ResetTokenExpiresAt)
}
