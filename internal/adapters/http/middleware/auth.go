package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aph/internal/domain/user"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	userContextKey  contextKey = "auth_user"
	tokenContextKey contextKey = "session_token"
)

// SessionCookieName is the cookie holding the session token.
const SessionCookieName = "aph_session"

// UserResolver turns a session token into the signed-in user, or nil.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*user.AuthUser, error)
}

// Auth resolves the session from the cookie or a bearer token and puts the
// user in the request context. It does NOT block anonymous requests; use
// RequireAuth or RequireRole for that.
func Auth(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token != "" {
				u, err := resolver.CurrentUser(r.Context(), token)
				if err != nil {
					slog.Error("auth_event", "event", "session_lookup_failed", "error", err)
				}
				ctx := context.WithValue(r.Context(), tokenContextKey, token)
				if u != nil {
					ctx = context.WithValue(ctx, userContextKey, u)
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth blocks anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			deny(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole blocks requests from users for whom allowed returns false:
// 401 when anonymous, 403 otherwise.
func RequireRole(allowed func(*user.AuthUser) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				deny(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !allowed(u) {
				slog.Warn("auth_event", "event", "forbidden", "user_id", u.ID, "role", u.Role, "path", r.URL.Path)
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin allows administrators only.
var RequireAdmin = RequireRole((*user.AuthUser).CanAccessAdmin)

// RequireDatabaseViewer allows administrators and coaches.
var RequireDatabaseViewer = RequireRole((*user.AuthUser).CanViewDatabase)

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *user.AuthUser {
	u, _ := ctx.Value(userContextKey).(*user.AuthUser)
	return u
}

// TokenFromContext returns the session token the request carried, if any.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenContextKey).(string)
	return t
}

// ContextWithUser returns a context with u signed in.
// Intended for use in tests.
func ContextWithUser(ctx context.Context, u *user.AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if t := bearerToken(r); t != "" {
		return t
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SetSessionCookie sets the session cookie on the response. secure marks
// it Secure and is set in production.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	maxAge := int(time.Until(expires).Seconds())
	if expires.IsZero() || maxAge <= 0 {
		maxAge = 86400
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
