package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / test / staging / prod
	// EnvExplicit is false when ENV was unset and Env fell back to "dev".
	EnvExplicit bool
	//HTTP
	HTTPAddr string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Storage
	StoreDriver   string // postgres / memory
	DBAddr        string
	DBDebug       bool
	DBAutoMigrate bool
	StoreTimeout  time.Duration

	// Redis (rate limiting only; optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RLLimit  int
	RLWindow time.Duration

	// Password reset
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
	PasswordResetDebug    bool
	ResetCleanupInterval  time.Duration

	// Email dispatch
	EmailSender  string // log / smtp / rabbitmq / ses
	EmailFrom    string
	MailTimeout  time.Duration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPInsecure bool

	RabbitURL      string
	RabbitExchange string

	SESRegion string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      strings.ToLower(getEnv("ENV", "dev")),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}
	cfg.EnvExplicit = strings.TrimSpace(os.Getenv("ENV")) != ""

	var err error
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	// Storage
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", "postgres"))
	switch cfg.StoreDriver {
	case "postgres":
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
	case "memory":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("STORE_DRIVER=memory is not allowed when ENV=%s", cfg.Env)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	// Redis
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if strings.Contains(cfg.RedisAddr, " ") {
		return nil, fmt.Errorf("bad REDIS_ADDR (contains spaces): %q", cfg.RedisAddr)
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RLLimit, err = getInt("RL_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RLWindow, err = getDuration("RL_WINDOW", 10*time.Minute); err != nil {
		return nil, err
	}

	// Password reset
	// Must include `token=` because the service appends the secret.
	cfg.PasswordResetBaseURL = os.Getenv("PASSWORD_RESET_BASE_URL")
	if cfg.PasswordResetBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: PASSWORD_RESET_BASE_URL")
	}
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}
	if cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTokenTTL <= 0 {
		return nil, fmt.Errorf("PASSWORD_RESET_TOKEN_TTL must be positive")
	}
	// An unset ENV never turns on secret disclosure by default.
	if cfg.PasswordResetDebug, err = getBool("PASSWORD_RESET_DEBUG", cfg.IsDevOrTest()); err != nil {
		return nil, err
	}
	// Debug disclosure of the plaintext secret is a deploy-time decision.
	if cfg.PasswordResetDebug && cfg.IsProduction() {
		return nil, fmt.Errorf("PASSWORD_RESET_DEBUG must not be enabled when ENV=%s", cfg.Env)
	}
	if cfg.ResetCleanupInterval, err = getDuration("RESET_CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	// Email
	cfg.EmailSender = strings.ToLower(getEnv("EMAIL_SENDER", "log"))
	cfg.EmailFrom = getEnv("EMAIL_FROM", "no-reply@maintenance.local")
	if cfg.MailTimeout, err = getDuration("MAIL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return nil, err
	}
	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "maintenance.events")
	cfg.SESRegion = os.Getenv("SES_REGION")

	switch cfg.EmailSender {
	case "log":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("EMAIL_SENDER=log is not allowed when ENV=%s", cfg.Env)
		}
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp sender selected but missing SMTP_HOST")
		}
	case "rabbitmq":
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("rabbitmq sender selected but missing RABBIT_URL")
		}
	case "ses":
		if cfg.SESRegion == "" {
			return nil, fmt.Errorf("ses sender selected but missing SES_REGION")
		}
	default:
		return nil, fmt.Errorf("unsupported EMAIL_SENDER: %q", cfg.EmailSender)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in a production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// IsDevOrTest reports whether ENV was explicitly set to dev or test.
// Dev-only behaviour (debug exposure, seeding, auto-migrate) keys off this.
func (c *Config) IsDevOrTest() bool {
	return c.EnvExplicit && (c.Env == "dev" || c.Env == "test")
}

// IsDev reports whether ENV was explicitly set to dev.
func (c *Config) IsDev() bool {
	return c.EnvExplicit && c.Env == "dev"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
