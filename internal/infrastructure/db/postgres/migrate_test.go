package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/db/postgres/migrations"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMigrate_RunsGooseUp(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("lock timeout")
	}

	err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose up")
}
