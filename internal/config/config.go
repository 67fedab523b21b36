// Package config reads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Placeholders used when the hosted backend is not configured. They are
// accepted without validation so the server still boots in development.
const (
	PlaceholderSupabaseURL = "your-supabase-url"
	PlaceholderSupabaseKey = "your-supabase-key"
)

// Backend selects where records live.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendSQLite   Backend = "sqlite"
)

var ErrInvalidBackend = errors.New("APH_BACKEND must be one of: supabase, sqlite")

// Config holds the server configuration.
type Config struct {
	Env             string
	Addr            string
	PublicURL       string
	Backend         Backend
	DBPath          string
	SupabaseURL     string
	SupabaseAnonKey string
	CSRFKey         string
	JWTSecret       string
	ResendKey       string
	ResendFrom      string
	ReplyTo         string
	RedisURL        string
	AdminEmail      string
	AdminPassword   string
	LogLevel        string
	SlowQuery       time.Duration
	OTLPEndpoint    string
}

// Load reads an optional .env file and then the process environment.
// PRE: none
// POST: Returns a populated Config or an error for malformed values
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config_event", "event", "dotenv_missing")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	slowMs, err := strconv.Atoi(get("APH_SLOW_QUERY_MS", "50"))
	if err != nil || slowMs <= 0 {
		return nil, fmt.Errorf("invalid APH_SLOW_QUERY_MS: %q", getenv("APH_SLOW_QUERY_MS"))
	}

	backend := Backend(strings.ToLower(get("APH_BACKEND", string(BackendSQLite))))
	if backend != BackendSupabase && backend != BackendSQLite {
		return nil, ErrInvalidBackend
	}

	return &Config{
		Env:             get("APH_ENV", "development"),
		Addr:            get("APH_ADDR", ":8080"),
		PublicURL:       strings.TrimRight(get("APH_PUBLIC_URL", "http://localhost:8080"), "/"),
		Backend:         backend,
		DBPath:          get("APH_DB_PATH", "aph.db"),
		SupabaseURL:     get("SUPABASE_URL", PlaceholderSupabaseURL),
		SupabaseAnonKey: get("SUPABASE_ANON_KEY", PlaceholderSupabaseKey),
		CSRFKey:         getenv("APH_CSRF_KEY"),
		JWTSecret:       getenv("APH_JWT_SECRET"),
		ResendKey:       getenv("APH_RESEND_KEY"),
		ResendFrom:      get("APH_RESEND_FROM", "APH Academy <noreply@aph.academy>"),
		ReplyTo:         get("APH_REPLY_TO", "info@aph.academy"),
		RedisURL:        getenv("APH_REDIS_URL"),
		AdminEmail:      get("APH_ADMIN_EMAIL", "admin@aph.academy"),
		AdminPassword:   getenv("APH_ADMIN_PASSWORD"),
		LogLevel:        get("APH_LOG_LEVEL", "info"),
		SlowQuery:       time.Duration(slowMs) * time.Millisecond,
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Warnings lists configuration that is accepted but probably wrong.
func (c *Config) Warnings() []string {
	var out []string
	if c.Backend == BackendSupabase {
		if c.SupabaseURL == PlaceholderSupabaseURL {
			out = append(out, "SUPABASE_URL is not set, using placeholder")
		}
		if c.SupabaseAnonKey == PlaceholderSupabaseKey {
			out = append(out, "SUPABASE_ANON_KEY is not set, using placeholder")
		}
	}
	if c.Backend == BackendSQLite && c.JWTSecret == "" {
		out = append(out, "APH_JWT_SECRET is not set, sessions will not survive a restart")
	}
	if c.IsProduction() {
		if c.ResendKey == "" {
			out = append(out, "APH_RESEND_KEY is not set, email delivery is disabled")
		}
		if c.CSRFKey == "" {
			out = append(out, "APH_CSRF_KEY is not set, a random key is generated per start")
		}
	}
	return out
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.LogLevel)}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
