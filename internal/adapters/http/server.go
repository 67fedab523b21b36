// Package web serves the academy's JSON API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aph/internal/adapters/backend"
	"aph/internal/adapters/http/middleware"
	"aph/internal/application/auth"
	"aph/internal/application/orchestrators"
	"aph/internal/observability/metrics"
)

// RateLimitPerSecond controls the default per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// PasswordResetter completes a reset with a token delivered by email.
// Only the local identity provider has one; the hosted provider handles
// the link itself.
type PasswordResetter interface {
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

// Config carries the HTTP-level settings.
type Config struct {
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
	SlowRequest    time.Duration
	// Limiter is created with RateLimitPerSecond when nil. The caller runs
	// its sweeper.
	Limiter *middleware.RateLimiter
}

// Server holds the dependencies of the handlers.
type Server struct {
	auth     *auth.Service
	stores   backend.Stores
	receipts orchestrators.ReceiptSender
	resetter PasswordResetter
	now      func() time.Time
	secure   bool
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithReceipts sends payment confirmations through r.
func WithReceipts(r orchestrators.ReceiptSender) Option {
	return func(s *Server) { s.receipts = r }
}

// WithPasswordResetter enables POST /api/auth/reset-password/confirm.
func WithPasswordResetter(p PasswordResetter) Option {
	return func(s *Server) { s.resetter = p }
}

// NewServer creates the API server.
func NewServer(authSvc *auth.Service, stores backend.Stores, opts ...Option) *Server {
	s := &Server{auth: authSvc, stores: stores, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler wires routes and middleware.
// Middleware order (outer to inner): metrics, timing, rate limit, auth, CSRF, security headers.
func (s *Server) Handler(cfg Config) http.Handler {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	}
	s.secure = cfg.Secure

	r := chi.NewRouter()
	r.Use(
		metrics.HTTPMetricsMiddleware,
		middleware.Timing(cfg.SlowRequest),
		middleware.RateLimit(limiter),
		middleware.Auth(s.auth),
		middleware.CSRF(cfg.CSRFKey, cfg.Secure, cfg.TrustedOrigins),
		middleware.SecurityHeaders,
	)
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/login", s.handleLogin)
			r.Post("/reset-password", s.handleResetPassword)
			if s.resetter != nil {
				r.Post("/reset-password/confirm", s.handleConfirmReset)
			}
			r.With(middleware.RequireAuth).Post("/logout", s.handleLogout)
			r.With(middleware.RequireAuth).Get("/me", s.handleMe)
		})

		r.Get("/programs", s.handleListPrograms)
		r.Get("/programs/{id}", s.handleGetProgram)
		r.Post("/payments", s.handleSubmitPayment)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me/payments", s.handleMyPayments)
			r.Get("/me/enrollments", s.handleMyEnrollments)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDatabaseViewer)
			r.Get("/payments", s.handleListPayments)
			r.Get("/enrollments", s.handleListEnrollments)
			r.Get("/users", s.handleListUsers)
			r.Get("/activity", s.handleListActivity)
			r.Get("/analytics/payments", s.handlePaymentAnalytics)
			r.Get("/analytics/users", s.handleUserAnalytics)
			r.Get("/analytics/programs", s.handleProgramAnalytics)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/programs", s.handleCreateProgram)
			r.Patch("/programs/{id}", s.handleUpdateProgram)
			r.Delete("/programs/{id}", s.handleDeleteProgram)
			r.Patch("/payments/{id}/status", s.handlePaymentStatus)
			r.Patch("/enrollments/{id}/status", s.handleEnrollmentStatus)
			r.Patch("/users/{id}/role", s.handleUserRole)
			r.Get("/settings", s.handleListSettings)
			r.Put("/settings", s.handlePutSetting)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor describes the signed-in user making a change.
func actor(r *http.Request) orchestrators.Actor {
	return orchestrators.Actor{
		User:      middleware.UserFromContext(r.Context()),
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
