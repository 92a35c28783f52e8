package postgres

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*AccountRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewAccountRepo(db), mock
}

var accountCols = []string{
	"id", "email", "name", "status", "password_hash", "reset_token_digest", "reset_token_expires_at",
	"failed_login_attempts", "locked_until", "password_changed_at",
}

func accountRows(id, email, status string, digest, expires any) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(id, email, "Sam", status, "hash", digest, expires, 0, nil, nil)
}
