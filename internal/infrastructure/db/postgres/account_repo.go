package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

const pgUniqueViolation = "23505"

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *AccountRepo) queryOne(ctx context.Context, notFound func() *domain.Error, q string, args ...any) (domain.Account, error) {
	ar, err := scanAccountRow(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, notFound()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar)
}

// ---------- reset.AccountStore ----------

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}

	const q = `
SELECT ` + accountColumns + `
FROM accounts
WHERE email = $1
LIMIT 1;
`
	return r.queryOne(ctx, domain.ErrAccountNotFound, q, email)
}

func (r *AccountRepo) FindByResetDigestValid(ctx context.Context, digest string, now time.Time) (domain.Account, error) {
	if digest == "" {
		return domain.Account{}, domain.ErrResetTokenInvalid()
	}

	const q = `
SELECT ` + accountColumns + `
FROM accounts
WHERE reset_token_digest = $1
  AND reset_token_expires_at > $2
  AND status = 'active'
LIMIT 1;
`
	return r.queryOne(ctx, domain.ErrResetTokenInvalid, q, digest, now)
}

func (r *AccountRepo) UpdateResetToken(ctx context.Context, accountID, digest string, expiresAt time.Time) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if digest == "" {
		return domain.ErrMissingField("reset_token_digest")
	}

	const q = `
UPDATE accounts
SET reset_token_digest = $2,
    reset_token_expires_at = $3,
    updated_at = now()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, accountID, digest, expiresAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound()
	}
	return nil
}

// ConsumeResetAndSetCredential is a single conditional UPDATE. Postgres row
// locking makes concurrent consumers of one digest serialise; the loser sees
// zero affected rows.
func (r *AccountRepo) ConsumeResetAndSetCredential(ctx context.Context, accountID, digest, passwordHash string, now time.Time) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if passwordHash == "" {
		return domain.ErrMissingField("password_hash")
	}

	const q = `
UPDATE accounts
SET password_hash = $3,
    password_changed_at = $4,
    reset_token_digest = NULL,
    reset_token_expires_at = NULL,
    failed_login_attempts = 0,
    locked_until = NULL,
    updated_at = now()
WHERE id = $1
  AND reset_token_digest = $2
  AND reset_token_expires_at > $4
  AND status = 'active';
`
	res, err := r.db.ExecContext(ctx, q, accountID, digest, passwordHash, now)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrResetTokenInvalid()
	}
	return nil
}

// ---------- reset.ExpiredTokenSweeper ----------

func (r *AccountRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const q = `
UPDATE accounts
SET reset_token_digest = NULL,
    reset_token_expires_at = NULL,
    updated_at = now()
WHERE reset_token_digest IS NOT NULL
  AND reset_token_expires_at <= $1;
`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

// ---------- seeding / ops ----------

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

	const q = `
INSERT INTO accounts (id, email, name, status, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + accountColumns + `;
`
	ar, err := scanAccountRow(r.db.QueryRowContext(ctx, q,
		a.ID, a.Email, a.Name, string(a.Status), a.PasswordHash,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Account{}, domain.ErrInvalidField("email", "already exists")
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar)
}

func (r *AccountRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
