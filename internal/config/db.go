package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
)

const (
	dbMaxOpenConns    = 20
	dbMaxIdleConns    = 10
	dbConnMaxIdleTime = 5 * time.Minute
	dbConnMaxLifetime = time.Hour
	dbPingTimeout     = 3 * time.Second
)

// NewDB opens a pgx-backed *sql.DB and pings it before returning.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	connCfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxIdleTime(dbConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s/%s: %w", connCfg.Host, connCfg.Database, err)
	}

	if debug {
		var ver string
		_ = db.QueryRowContext(ctx, "SHOW server_version").Scan(&ver)
		logger.Logger.Debug().
			Str("host", connCfg.Host).
			Str("db", connCfg.Database).
			Str("user", connCfg.User).
			Str("version", ver).
			Msg("db connected")
	}

	return db, nil
}

func parseDSN(dsn string) (*pgx.ConnConfig, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		// pgx errors can echo the DSN, which may hold a password.
		return nil, fmt.Errorf("invalid DB DSN")
	}
	return connCfg, nil
}
