package reset

import (
	"context"
	"time"
)

// GenericRequestMessage is returned for every accepted reset request,
// whether or not the account exists.
const GenericRequestMessage = "If an account with that email exists, a password reset link has been sent."

const (
	ValidTokenMessage   = "Token is valid."
	ResetSuccessMessage = "Password has been reset successfully."

	MinPasswordLength = 8
)

// Service runs the password reset flow: request, validate and consume.
type Service struct {
	accounts AccountStore
	hasher   PasswordHasher
	mailer   Mailer
	render   ResetEmailBuilder

	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)

	// e.g. https://frontend/reset-password?token=
	resetBaseURL string
	tokenTTL     time.Duration
	exposeDebug  bool

	storeTimeout time.Duration
	mailTimeout  time.Duration
}

// Config carries the reset settings loaded from the environment.
type Config struct {
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
	// ExposeDebugToken returns the secret in the request response.
	// Config loading refuses it in production.
	ExposeDebugToken bool
	StoreTimeout     time.Duration
	MailTimeout      time.Duration
}

// NewService wires the ports together. Zero timeouts and TTL fall back to
// their defaults.
func NewService(
	accounts AccountStore,
	hasher PasswordHasher,
	mailer Mailer,
	render ResetEmailBuilder,
	cfg Config,
) *Service {
	ttl := cfg.PasswordResetTokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	mailTimeout := cfg.MailTimeout
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		mailer:   mailer,
		render:   render,

		now:   time.Now,
		audit: func(context.Context, string, map[string]string) {},

		resetBaseURL: cfg.PasswordResetBaseURL,
		tokenTTL:     ttl,
		exposeDebug:  cfg.ExposeDebugToken,

		storeTimeout: storeTimeout,
		mailTimeout:  mailTimeout,
	}
}

// WithAudit installs the audit sink; nil keeps the no-op default.
func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// DebugInfo is only populated outside production.
type DebugInfo struct {
	Token     string
	ResetURL  string
	ExpiresAt time.Time
}

type RequestResult struct {
	Message string
	Debug   *DebugInfo
}

type ValidateResult struct {
	Message string
	Email   string
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
