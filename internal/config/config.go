package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	Postgres PostgresConfig
	Auth     AuthConfig
	Mail     MailConfig
	Redis    RedisConfig

	CORSAllowedOrigins []string
	FrontendBaseURL    string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CodeTTL        time.Duration
	ResetTokenTTL  time.Duration
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPStartTLS bool
	SMTPTLS      bool
	FromName     string
	FromAddress  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:      strings.ToLower(getenv("APP_ENV", "development")),
		HTTPPort: getenv("HTTP_PORT", "8080"),
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
			CookieSecure:   getenvBool("COOKIE_SECURE", false),
			CookieSameSite: strings.ToLower(getenv("COOKIE_SAMESITE", "lax")),
		},
		Mail: MailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			SMTPStartTLS: getenvBool("SMTP_STARTTLS", true),
			SMTPTLS:      getenvBool("SMTP_TLS", false),
			FromName:     getenv("MAIL_FROM_NAME", "Polyblog"),
			FromAddress:  getenv("MAIL_FROM_ADDRESS", "noreply@localhost"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		CORSAllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:4321")),
		FrontendBaseURL:    getenv("FRONTEND_BASE_URL", "http://localhost:4321"),
	}

	var err error
	if cfg.Auth.AccessTTL, err = time.ParseDuration(getenv("JWT_ACCESS_TTL", "15m")); err != nil {
		return nil, fmt.Errorf("parse JWT_ACCESS_TTL: %w", err)
	}
	if cfg.Auth.RefreshTTL, err = time.ParseDuration(getenv("JWT_REFRESH_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("parse JWT_REFRESH_TTL: %w", err)
	}
	if cfg.Auth.CodeTTL, err = time.ParseDuration(getenv("VERIFICATION_CODE_TTL", "15m")); err != nil {
		return nil, fmt.Errorf("parse VERIFICATION_CODE_TTL: %w", err)
	}
	if cfg.Auth.ResetTokenTTL, err = time.ParseDuration(getenv("PASSWORD_RESET_TTL", "30m")); err != nil {
		return nil, fmt.Errorf("parse PASSWORD_RESET_TTL: %w", err)
	}

	// Production hardens the cookie attributes unless explicitly overridden.
	if cfg.IsProduction() {
		if os.Getenv("COOKIE_SECURE") == "" {
			cfg.Auth.CookieSecure = true
		}
		if os.Getenv("COOKIE_SAMESITE") == "" {
			cfg.Auth.CookieSameSite = "none"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) Validate() error {
	var errs []string
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.AccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.Auth.RefreshTTL <= 0 || c.Auth.RefreshTTL > 30*24*time.Hour {
		errs = append(errs, "JWT_REFRESH_TTL must be between 1s and 30d")
	}
	switch c.Auth.CookieSameSite {
	case "lax", "strict", "none":
	default:
		errs = append(errs, "COOKIE_SAMESITE must be lax, strict or none")
	}
	if c.Auth.CookieSameSite == "none" && !c.Auth.CookieSecure {
		errs = append(errs, "COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if c.Postgres.DatabaseURL == "" && (c.Postgres.User == "" || c.Postgres.Database == "") {
		errs = append(errs, "DATABASE_URL or PGUSER/PGDATABASE is required")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trim := strings.TrimSpace(p); trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
