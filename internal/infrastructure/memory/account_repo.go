package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

// AccountRepo is an in-process account store for dev runs and tests.
// A single mutex serialises the conditional consume the way a row lock would.
type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string // email -> accountID
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// clone copies the pointer fields so callers never alias stored state.
func clone(a domain.Account) domain.Account {
	if a.ResetTokenDigest != nil {
		d := *a.ResetTokenDigest
		a.ResetTokenDigest = &d
	}
	if a.ResetTokenExpiresAt != nil {
		t := *a.ResetTokenExpiresAt
		a.ResetTokenExpiresAt = &t
	}
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		a.LockedUntil = &t
	}
	if a.PasswordChangedAt != nil {
		t := *a.PasswordChangedAt
		a.PasswordChangedAt = &t
	}
	return a
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = normalizeEmail(a.Email)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}
	if a.Status == "" {
		a.Status = domain.StatusActive
	}
	if err := a.Validate(); err != nil {
		return domain.Account{}, domain.ErrCorruptAccount(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[a.Email]; exists {
		return domain.Account{}, domain.ErrInvalidField("email", "already exists")
	}
	r.byID[a.ID] = clone(a)
	r.byEmail[a.Email] = a.ID
	return clone(a), nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(a), nil
}

// ---------- reset.AccountStore ----------

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepo) FindByResetDigestValid(ctx context.Context, digest string, now time.Time) (domain.Account, error) {
	if digest == "" {
		return domain.Account{}, domain.ErrResetTokenInvalid()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if usable(a, digest, now) {
			return clone(a), nil
		}
	}
	return domain.Account{}, domain.ErrResetTokenInvalid()
}

func (r *AccountRepo) UpdateResetToken(ctx context.Context, accountID, digest string, expiresAt time.Time) error {
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if digest == "" {
		return domain.ErrMissingField("digest")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[accountID]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	d := digest
	exp := expiresAt
	a.ResetTokenDigest = &d
	a.ResetTokenExpiresAt = &exp
	r.byID[accountID] = a
	return nil
}

func (r *AccountRepo) ConsumeResetAndSetCredential(ctx context.Context, accountID, digest, passwordHash string, now time.Time) error {
	if passwordHash == "" {
		return domain.ErrMissingField("password_hash")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[accountID]
	if !ok || !usable(a, digest, now) {
		return domain.ErrResetTokenInvalid()
	}

	changed := now
	a.PasswordHash = passwordHash
	a.PasswordChangedAt = &changed
	a.ResetTokenDigest = nil
	a.ResetTokenExpiresAt = nil
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	r.byID[accountID] = a
	return nil
}

// ---------- reset.ExpiredTokenSweeper ----------

func (r *AccountRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.byID {
		if a.ResetTokenDigest != nil && a.ResetTokenExpiresAt != nil && !now.Before(*a.ResetTokenExpiresAt) {
			a.ResetTokenDigest = nil
			a.ResetTokenExpiresAt = nil
			r.byID[id] = a
			n++
		}
	}
	return n, nil
}

func (r *AccountRepo) Ping(ctx context.Context) error { return nil }

func usable(a domain.Account, digest string, now time.Time) bool {
	return a.IsActive() &&
		a.ResetTokenDigest != nil &&
		*a.ResetTokenDigest == digest &&
		a.HasPendingReset(now)
}
