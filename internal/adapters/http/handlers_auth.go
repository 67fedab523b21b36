package web

import (
	"errors"
	"net/http"
	"time"

	"aph/internal/adapters/http/middleware"
	localidentity "aph/internal/adapters/identity"
	"aph/internal/adapters/session"
	"aph/internal/application/auth"
	"aph/internal/application/forms"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/identity"
)

type sessionView struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	User      any    `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var f forms.Signup
	if !strictDecode(w, r, &f) {
		return
	}
	if err := f.Validate(); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.auth.SignUp(r.Context(), auth.SignUpInput{
		Email: f.Email, Password: f.Password, Name: f.Name, Phone: f.Phone, Role: f.UserRole(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	orchestrators.ExecuteRecordSignUp(r.Context(), actor(r), u, s.stores.Activity)
	writeJSON(w, http.StatusCreated, toUserView(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var f forms.Login
	if !strictDecode(w, r, &f) {
		return
	}
	if err := f.Validate(); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), f.Email, f.Password)
	if err != nil {
		if auth.IsAuthError(err) {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, err)
		return
	}
	// The session outlives its access token, which is refreshed on use.
	expires := s.now().Add(session.DefaultTTL)
	middleware.SetSessionCookie(w, sess.Token, expires, s.secure)
	writeJSON(w, http.StatusOK, sessionView{
		Token: sess.Token, User: sess.User, ExpiresAt: expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	middleware.ClearSessionCookie(w, s.secure)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// handleResetPassword always answers 202 so the endpoint cannot be used to
// probe which emails are registered.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var f forms.ResetPassword
	if !strictDecode(w, r, &f) {
		return
	}
	if err := f.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), f.Email); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "If the email is registered, a reset link is on its way"})
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !strictDecode(w, r, &body) {
		return
	}
	if len(body.Password) < identity.MinPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": forms.Errors{"password": "Password must be at least 6 characters"}})
		return
	}
	if err := s.resetter.CompletePasswordReset(r.Context(), body.Token, body.Password); err != nil {
		if errors.Is(err, localidentity.ErrInvalidResetToken) || errors.Is(err, identity.ErrWeakPassword) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
