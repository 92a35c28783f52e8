package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/audit"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/config"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/email"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/redis"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/security"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/logger"
	http_handlers "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/handlers"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/middleware"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(addr string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) RedisClient

	NewMailer func(cfg *config.Config) (reset.Mailer, error)

	NewRouter func(router.Deps) (http.Handler, error)

	Hasher reset.PasswordHasher
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

// accountStore is what both the postgres and memory stores provide.
type accountStore interface {
	reset.AccountStore
	reset.ExpiredTokenSweeper
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	Ping(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) account store
	var store accountStore
	switch cfg.StoreDriver {
	case "memory":
		logger.Logger.Warn().Msg("using in-memory account store; data is lost on restart")
		store = memory.NewAccountRepo()
	default:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBAutoMigrate && deps.Migrate != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deps.Migrate(ctx, db)
			cancel()
			if err != nil {
				return fail(err)
			}
		}
		store = postgres.NewAccountRepo(db)
	}

	// 2) redis (best-effort, rate limiting only)
	var limiter middleware.RateLimiter
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limiter")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			if rc, ok := c.(*redis.Client); ok {
				limiter = redis.NewFixedWindowLimiter(rc)
			}
		}
	}

	// 3) mailer
	mailer, err := deps.NewMailer(cfg)
	if err != nil {
		if cfg.IsDev() {
			logger.Logger.Warn().Err(err).Str("sender", cfg.EmailSender).Msg("email sender unavailable; logging emails instead")
			mailer = email.NewLogSender(logger.Logger)
		} else {
			return fail(err)
		}
	}
	if c, ok := mailer.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 4) security
	hasher := deps.Hasher
	if hasher == nil {
		hasher = security.NewBcryptHasher(12)
	}

	// seed (dev only)
	if cfg.IsDev() {
		postgres.SeedAccounts(context.Background(), store, hasher, logger.Logger)
	}

	// 5) service
	resetSvc := reset.NewService(
		store,
		hasher,
		mailer,
		email.BuildResetEmail,
		reset.Config{
			PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
			PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
			ExposeDebugToken:      cfg.PasswordResetDebug,
			StoreTimeout:          cfg.StoreTimeout,
			MailTimeout:           cfg.MailTimeout,
		},
	).WithAudit(audit.New(logger.Logger).Record)

	if cfg.PasswordResetDebug {
		logger.Logger.Warn().Msg("password reset debug exposure enabled; secrets are returned in responses")
	}

	// 6) sweeper
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	cleanupFns = append(cleanupFns, stopSweeper)
	reset.StartExpiredTokenSweeper(sweepCtx, store, cfg.ResetCleanupInterval, logger.Logger)

	// 7) handlers + router
	mux, err := deps.NewRouter(router.Deps{
		Health:   http_handlers.NewHealthHandler(store),
		Reset:    http_handlers.NewPasswordResetHandler(resetSvc),
		Limiter:  limiter,
		RLLimit:  cfg.RLLimit,
		RLWindow: cfg.RLWindow,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewMailer: NewMailer,
		NewRouter: router.New,
	}
}

// NewMailer builds the outbound email port selected by EMAIL_SENDER.
func NewMailer(cfg *config.Config) (reset.Mailer, error) {
	switch cfg.EmailSender {
	case "log":
		return email.NewLogSender(logger.Logger), nil
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			Timeout:  cfg.MailTimeout,
			Insecure: cfg.SMTPInsecure,
		}, logger.Logger), nil
	case "rabbitmq":
		pub, err := rabbitmq_pub.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "ses":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sender, err := email.NewSESSender(ctx, cfg.SESRegion, cfg.EmailFrom, logger.Logger)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unsupported email sender: %q", cfg.EmailSender)
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
