package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string

	DBDriver          string
	DBPath            string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	MigrationsDir     string

	TrustProxy         bool
	CORSAllowedOrigins []string

	SessionTTLHours       int
	LockoutThreshold      int
	LockoutMinutes        int
	PasswordHasher        string
	BcryptCost            int
	PasswordMinLength     int
	PasswordMaxLength     int
	LoginRateLimit        int
	RegisterRateLimit     int
	RateLimitWindowSecond int

	InviteTTLHours int
	InviteSender   string
	InviteFrom     string
	InviteBaseURL  string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SMTPStartTLS   bool

	BootstrapInviteCode  string
	BootstrapInviteEmail string

	CaptchaProvider  string
	CaptchaVerifyURL string
	CaptchaSecret    string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	// Carried for the site's other collaborators; the auth core never reads them.
	BackendURL       string
	CompletionAPIKey string
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		DBDriver:                 strings.ToLower(env("APP_DB_DRIVER", "sqlite")),
		DBPath:                   env("APP_DB_PATH", "./data/admin.db"),
		DBDSN:                    env("APP_DB_DSN", ""),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		MigrationsDir:            env("APP_MIGRATIONS_DIR", "migrations"),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		SessionTTLHours:          envInt("SESSION_TTL_HOURS", 24),
		LockoutThreshold:         envInt("LOGIN_LOCKOUT_THRESHOLD", 5),
		LockoutMinutes:           envInt("LOGIN_LOCKOUT_MINUTES", 15),
		PasswordHasher:           strings.ToLower(env("PASSWORD_HASHER", "bcrypt")),
		BcryptCost:               envInt("BCRYPT_COST", 10),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 6),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 72),
		LoginRateLimit:           envInt("LOGIN_RATE_LIMIT", 20),
		RegisterRateLimit:        envInt("REGISTER_RATE_LIMIT", 10),
		RateLimitWindowSecond:    envInt("RATE_LIMIT_WINDOW_SEC", 60),
		InviteTTLHours:           envInt("INVITE_TTL_HOURS", 7*24),
		InviteSender:             strings.ToLower(env("INVITE_SENDER", "log")),
		InviteFrom:               env("INVITE_FROM", "webmaster@example.com"),
		InviteBaseURL:            env("INVITE_BASE_URL", ""),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 587),
		SMTPUser:                 env("SMTP_USER", ""),
		SMTPPassword:             env("SMTP_PASSWORD", ""),
		SMTPStartTLS:             envBool("SMTP_STARTTLS", true),
		BootstrapInviteCode:      env("BOOTSTRAP_INVITE_CODE", ""),
		BootstrapInviteEmail:     env("BOOTSTRAP_INVITE_EMAIL", ""),
		CaptchaProvider:          strings.ToLower(env("CAPTCHA_PROVIDER", "")),
		CaptchaVerifyURL:         env("CAPTCHA_VERIFY_URL", ""),
		CaptchaSecret:            env("CAPTCHA_SECRET", ""),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		BackendURL:               env("BACKEND_URL", ""),
		CompletionAPIKey:         env("COMPLETION_API_KEY", ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("APP_DB_PATH is required for the sqlite driver")
		}
	case "pgx", "mysql":
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("APP_DB_DSN is required for the %s driver", c.DBDriver)
		}
	default:
		return fmt.Errorf("APP_DB_DRIVER must be one of: sqlite, pgx, mysql")
	}
	if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("invalid DB pool config")
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.LockoutThreshold <= 0 || c.LockoutMinutes <= 0 {
		return fmt.Errorf("lockout threshold and window must be positive")
	}
	switch c.PasswordHasher {
	case "bcrypt":
		if c.BcryptCost < 10 || c.BcryptCost > 14 {
			return fmt.Errorf("BCRYPT_COST must be between 10 and 14")
		}
	case "argon2id":
	default:
		return fmt.Errorf("PASSWORD_HASHER must be one of: bcrypt, argon2id")
	}
	if c.PasswordMinLength < 6 {
		return fmt.Errorf("password min length must be >= 6")
	}
	if c.PasswordMaxLength < c.PasswordMinLength {
		return fmt.Errorf("password max length must be >= min length")
	}
	if c.PasswordHasher == "bcrypt" && c.PasswordMaxLength > 72 {
		return fmt.Errorf("password max length must be <= 72 with bcrypt")
	}
	if c.LoginRateLimit <= 0 || c.RegisterRateLimit <= 0 || c.RateLimitWindowSecond <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.InviteTTLHours <= 0 {
		return fmt.Errorf("INVITE_TTL_HOURS must be positive")
	}
	switch c.InviteSender {
	case "log", "smtp":
	default:
		return fmt.Errorf("INVITE_SENDER must be one of: log, smtp")
	}
	if (c.BootstrapInviteCode == "") != (c.BootstrapInviteEmail == "") {
		return fmt.Errorf("BOOTSTRAP_INVITE_CODE and BOOTSTRAP_INVITE_EMAIL must be set together")
	}
	switch c.CaptchaProvider {
	case "", "none":
	case "turnstile", "hcaptcha", "cap":
		if strings.TrimSpace(c.CaptchaVerifyURL) == "" || strings.TrimSpace(c.CaptchaSecret) == "" {
			return fmt.Errorf("CAPTCHA_VERIFY_URL and CAPTCHA_SECRET are required when CAPTCHA_PROVIDER is set")
		}
	default:
		return fmt.Errorf("CAPTCHA_PROVIDER must be one of: turnstile, hcaptcha, cap")
	}
	return nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) LockoutWindow() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

func (c Config) InviteTTL() time.Duration {
	return time.Duration(c.InviteTTLHours) * time.Hour
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSecond) * time.Second
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
