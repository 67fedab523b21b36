// Package auth signs visitors up, in and out, and resolves the current user
// of a session.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aph/internal/adapters/session"
	userstore "aph/internal/adapters/storage/user"
	"aph/internal/domain/identity"
	"aph/internal/domain/user"
	"aph/internal/observability/metrics"
)

// IdentityProvider authenticates principals. Implementations are the hosted
// auth API and the local credential store.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta identity.Metadata) (identity.Identity, error)
	SignIn(ctx context.Context, email, password string) (identity.Identity, identity.Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (identity.Identity, error)
	ResetPassword(ctx context.Context, email string) error
}

// Refresher is implemented by providers that can renew an expired access
// token from a refresh token. Sessions of other providers end with their
// access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (identity.Tokens, error)
}

// SessionStore keeps sessions between requests.
type SessionStore interface {
	Create(ctx context.Context, s session.Session) (string, error)
	Get(ctx context.Context, token string) (session.Session, bool, error)
	Update(ctx context.Context, token string, s session.Session) (bool, error)
	Delete(ctx context.Context, token string) error
}

// Event names a change of authentication state.
type Event string

const (
	EventSignedIn    Event = "SIGNED_IN"
	EventSignedOut   Event = "SIGNED_OUT"
	EventUserUpdated Event = "USER_UPDATED"
)

// Listener is told about every auth state change. u is nil after sign-out.
type Listener func(event Event, u *user.AuthUser)

var (
	ErrRoleNotAllowed = errors.New("role cannot be chosen at signup")
	ErrNoUserRecord   = errors.New("user record not found")
)

// AuthError is a failed auth operation. Its message is the underlying
// provider or store message so it can be shown to the user as is.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

func fail(op string, err error) error {
	return &AuthError{Op: op, Err: err}
}

// SignUpInput carries the fields of the signup form.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     user.Role
}

// Session is a signed-in session as seen by callers.
type Session struct {
	Token     string
	User      *user.AuthUser
	ExpiresAt time.Time
}

// Service implements the authentication operations.
type Service struct {
	provider IdentityProvider
	users    userstore.Store
	sessions SessionStore
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewService creates an auth service.
func NewService(provider IdentityProvider, users userstore.Store, sessions SessionStore) *Service {
	return &Service{
		provider:  provider,
		users:     users,
		sessions:  sessions,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// SignUp creates the identity and then the user record.
// PRE: none; the password length and role are checked before any remote call
// POST: On success a user record with IsActive=true exists under the identity id
// INVARIANT: a created identity is not rolled back if the user insert fails
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (user.User, error) {
	if len(in.Password) < identity.MinPasswordLength {
		return user.User{}, fail("signup", identity.ErrWeakPassword)
	}
	if in.Role == "" {
		in.Role = user.RoleUser
	}
	if !in.Role.SelfService() {
		return user.User{}, fail("signup", ErrRoleNotAllowed)
	}
	email := user.NormalizeEmail(in.Email)

	id, err := s.provider.SignUp(ctx, email, in.Password, identity.Metadata{
		"name": in.Name, "phone": in.Phone, "role": string(in.Role),
	})
	if err != nil {
		logEvent("signup_failed", "email", email, "error", err)
		return user.User{}, fail("signup", err)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		ID: id.ID, Email: email, Name: in.Name, Phone: in.Phone, Role: in.Role, IsActive: true,
	})
	if err != nil {
		slog.Error("auth_event", "event", "signup_orphaned_identity", "identity_id", id.ID, "error", err)
		return user.User{}, fail("signup", err)
	}
	logEvent("signup_success", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// SignIn checks credentials, loads the user record and opens a session.
// POST: last_login is stamped; a failed stamp is logged, not returned
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = user.NormalizeEmail(email)
	id, tokens, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		logEvent("login_failed", "email", email, "error", err)
		return Session{}, fail("signin", err)
	}
	u, err := s.users.GetByID(ctx, id.ID)
	if err != nil {
		return Session{}, fail("signin", err)
	}
	if u == nil {
		logEvent("login_failed", "email", email, "reason", "no_user_record")
		return Session{}, fail("signin", ErrNoUserRecord)
	}
	au := user.NewAuthUser(*u)

	if err := s.users.TouchLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		slog.Warn("auth_event", "event", "last_login_update_failed", "user_id", u.ID, "error", err)
	}

	token, err := s.sessions.Create(ctx, session.Session{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
	if err != nil {
		return Session{}, fail("signin", err)
	}
	logEvent("login_success", "user_id", u.ID, "role", u.Role)
	s.emit(EventSignedIn, au)
	return Session{Token: token, User: au, ExpiresAt: tokens.ExpiresAt}, nil
}

// SignOut ends the session. An unknown token is already signed out.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return fail("signout", err)
	}
	if !ok {
		return nil
	}
	if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
		return fail("signout", err)
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fail("signout", err)
	}
	logEvent("logout", "user_id", sess.UserID)
	s.emit(EventSignedOut, nil)
	return nil
}

// CurrentUser resolves the user behind a session token. The access token
// is re-verified and the user record re-read on every call. An expired
// access token is refreshed first when the provider is a Refresher.
// POST: Returns nil, and clears the session, when any step fails. The error
// is set only when the session store itself cannot be read.
func (s *Service) CurrentUser(ctx context.Context, token string) (*user.AuthUser, error) {
	if token == "" {
		return nil, nil
	}
	sess, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		if !s.refresh(ctx, &sess) {
			s.drop(ctx, token, "access_token_expired")
			return nil, nil
		}
	}
	if _, err := s.provider.GetUser(ctx, sess.AccessToken); err != nil {
		s.drop(ctx, token, err.Error())
		return nil, nil
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil || u == nil {
		s.drop(ctx, token, "user_record_unavailable")
		return nil, nil
	}

	sess.Email, sess.Role = u.Email, string(u.Role)
	if _, err := s.sessions.Update(ctx, token, sess); err != nil {
		slog.Warn("auth_event", "event", "session_update_failed", "user_id", u.ID, "error", err)
	}
	return user.NewAuthUser(*u), nil
}

// refresh swaps sess's expired access token for a new one. The caller
// persists sess.
// POST: Returns false when the provider cannot refresh or rejects the token
func (s *Service) refresh(ctx context.Context, sess *session.Session) bool {
	r, ok := s.provider.(Refresher)
	if !ok || sess.RefreshToken == "" {
		return false
	}
	tokens, err := r.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		slog.Info("auth_event", "event", "token_refresh_failed", "user_id", sess.UserID, "error", err)
		return false
	}
	sess.AccessToken, sess.ExpiresAt = tokens.AccessToken, tokens.ExpiresAt
	if tokens.RefreshToken != "" {
		sess.RefreshToken = tokens.RefreshToken
	}
	logEvent("token_refreshed", "user_id", sess.UserID)
	return true
}

// UpdateUserRole sets a user's role. Callers enforce who may do this.
func (s *Service) UpdateUserRole(ctx context.Context, userID string, role user.Role) error {
	if !role.Valid() {
		return fail("update_role", user.ErrInvalidRole)
	}
	u, err := s.users.Update(ctx, userID, user.Patch{Role: &role})
	if err != nil {
		return fail("update_role", err)
	}
	logEvent("role_changed", "user_id", userID, "role", role)
	s.emit(EventUserUpdated, user.NewAuthUser(u))
	return nil
}

// ResetPassword asks the provider to send a reset link.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	if err := s.provider.ResetPassword(ctx, email); err != nil {
		return fail("reset_password", err)
	}
	logEvent("password_reset_requested", "email", email)
	return nil
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (s *Service) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// emit calls listeners outside the lock so they may unsubscribe.
func (s *Service) emit(event Event, u *user.AuthUser) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(event, u)
	}
}

func (s *Service) drop(ctx context.Context, token, reason string) {
	if err := s.sessions.Delete(ctx, token); err != nil {
		slog.Warn("auth_event", "event", "session_delete_failed", "error", err)
	}
	logEvent("session_invalidated", "reason", reason)
	s.emit(EventSignedOut, nil)
}

func logEvent(event string, args ...any) {
	metrics.ObserveAuthEvent(event)
	slog.Info("auth_event", append([]any{"event", event}, args...)...)
}

// IsAuthError reports whether err came from the auth service.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
