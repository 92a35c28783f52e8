// Operator commands run against the account database.
//
//	tool migrate          apply pending schema migrations
//	tool purge-expired    clear expired reset tokens once
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/config"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
)

const usage = "usage: tool <migrate|purge-expired>"

type toolDeps struct {
	openDB  func(dsn string) (*sql.DB, error)
	migrate func(ctx context.Context, db *sql.DB) error
	sweeper func(db *sql.DB) reset.ExpiredTokenSweeper
}

func defaultToolDeps() toolDeps {
	return toolDeps{
		openDB: func(dsn string) (*sql.DB, error) {
			return config.NewDB(dsn, false)
		},
		migrate: postgres.Migrate,
		sweeper: func(db *sql.DB) reset.ExpiredTokenSweeper {
			return postgres.NewAccountRepo(db)
		},
	}
}

func run(args []string, dsn string, deps toolDeps, out io.Writer, lg zerolog.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, usage)
		return 2
	}
	cmd := args[0]
	if cmd != "migrate" && cmd != "purge-expired" {
		fmt.Fprintf(out, "unknown command %q\n%s\n", cmd, usage)
		return 2
	}
	if strings.TrimSpace(dsn) == "" {
		lg.Error().Msg("missing required env var: DB_ADDR")
		return 1
	}

	db, err := deps.openDB(dsn)
	if err != nil {
		lg.Error().Err(err).Msg("database unavailable")
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd {
	case "migrate":
		if err := deps.migrate(ctx, db); err != nil {
			lg.Error().Err(err).Msg("migrate failed")
			return 1
		}
		lg.Info().Msg("migrations applied")
	case "purge-expired":
		n, err := deps.sweeper(db).ClearExpiredResetTokens(ctx, time.Now())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				lg.Error().Msg("purge timed out")
			} else {
				lg.Error().Err(err).Msg("purge failed")
			}
			return 1
		}
		lg.Info().Int64("cleared", n).Msg("expired reset tokens cleared")
		fmt.Fprintf(out, "cleared %d expired reset token(s)\n", n)
	}
	return 0
}

func main() {
	_ = godotenv.Load()
	logger.Init()

	os.Exit(run(os.Args[1:], os.Getenv("DB_ADDR"), defaultToolDeps(), os.Stdout, zlog.Logger))
}
