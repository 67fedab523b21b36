package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"aph/internal/adapters/backend"
	"aph/internal/adapters/email"
	web "aph/internal/adapters/http"
	"aph/internal/adapters/http/middleware"
	localidentity "aph/internal/adapters/identity"
	"aph/internal/adapters/session"
	"aph/internal/adapters/storage"
	"aph/internal/adapters/storage/credential"
	"aph/internal/adapters/supabase"
	"aph/internal/application/auth"
	"aph/internal/application/orchestrators"
	"aph/internal/config"
	"aph/internal/observability/tracing"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const sessionSweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("server_event", "event", "exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		slog.Warn("config_event", "event", "warning", "detail", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, "aph", cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing_event", "event", "shutdown_failed", "error", err)
		}
	}()

	// Email: Resend when configured, otherwise messages are only logged.
	var sender email.Sender = email.NewLogSender()
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.ResendFrom, cfg.ReplyTo)
	}
	mailer := &orchestrators.Mailer{
		Sender:   sender,
		From:     cfg.ResendFrom,
		ReplyTo:  cfg.ReplyTo,
		ResetURL: cfg.PublicURL + "/reset-password",
	}

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	var (
		stores   backend.Stores
		provider auth.IdentityProvider
		opts     = []web.Option{web.WithReceipts(mailer)}
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := storage.MigrateDB(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		timed := storage.NewTimedDB(db, cfg.SlowQuery)
		stores = backend.NewSQLite(timed)

		secret := []byte(cfg.JWTSecret)
		if len(secret) == 0 {
			if secret, err = randomBytes(32); err != nil {
				return err
			}
		}
		local := localidentity.NewLocalProvider(credential.NewSQLiteStore(timed), secret, mailer.SendPasswordReset)
		provider = local
		opts = append(opts, web.WithPasswordResetter(local))
	case config.BackendSupabase:
		client := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		stores = backend.NewSupabase(client)
		provider = supabase.NewIdentityProvider(client)
	}

	if cfg.AdminPassword != "" {
		if _, err := orchestrators.ExecuteSeedAdmin(ctx,
			orchestrators.SeedAdminInput{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Name: "Administrator"},
			orchestrators.SeedAdminDeps{Provider: provider, Users: stores.Users}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	seeded, err := orchestrators.ExecuteSeedPrograms(ctx, orchestrators.SeedProgramsDeps{ProgramStore: stores.Programs})
	if err != nil {
		return fmt.Errorf("seed programs: %w", err)
	}
	if seeded > 0 {
		slog.Info("seed_event", "event", "programs_seeded", "count", seeded)
	}

	key, err := csrfKey(cfg.CSRFKey)
	if err != nil {
		return err
	}
	limiter := middleware.NewRateLimiter(web.RateLimitPerSecond, time.Second)
	go limiter.Run(ctx)

	authSvc := auth.NewService(provider, stores.Users, sessions)
	srv := web.NewServer(authSvc, stores, opts...)
	handler := srv.Handler(web.Config{
		CSRFKey:        key,
		Secure:         cfg.IsProduction(),
		TrustedOrigins: trustedHosts(cfg.PublicURL),
		Limiter:        limiter,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(handler, "aph"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "addr", cfg.Addr, "backend", cfg.Backend, "version", version)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openSessions returns the Redis session store when APH_REDIS_URL is set,
// otherwise an in-process store swept in the background.
func openSessions(ctx context.Context, cfg *config.Config) (auth.SessionStore, func(), error) {
	if cfg.RedisURL != "" {
		rdb, err := session.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return session.NewRedisStore(rdb, session.DefaultTTL), func() { _ = rdb.Close() }, nil
	}

	mem := session.NewMemoryStore(session.DefaultTTL)
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					slog.Debug("session_event", "event", "swept", "count", n)
				}
			}
		}
	}()
	return mem, func() {}, nil
}

// csrfKey decodes the hex APH_CSRF_KEY or generates a key for this process.
func csrfKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return randomBytes(32)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("APH_CSRF_KEY must be 64 hex characters")
	}
	return key, nil
}

// trustedHosts turns the public URL into the host list gorilla/csrf
// compares Referer hosts against.
func trustedHosts(publicURL string) []string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return b, nil
}
