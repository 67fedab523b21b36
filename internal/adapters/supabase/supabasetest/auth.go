package supabasetest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of access tokens issued by the twin.
const TokenTTL = time.Hour

func authError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "error_code": code, "msg": msg})
}

func (a *account) view() map[string]any {
	meta := a.meta
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"id":            a.id,
		"email":         a.email,
		"user_metadata": meta,
		"created_at":    a.created,
		"aud":           "authenticated",
		"role":          "authenticated",
	}
}

// AddAccount registers an identity directly and returns its id.
func (s *Server) AddAccount(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(email, password, nil)
}

func (s *Server) addAccountLocked(email, password string, meta map[string]any) string {
	a := &account{
		id:       uuid.NewString(),
		email:    strings.ToLower(email),
		password: password,
		meta:     meta,
		created:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.accounts[a.id] = a
	s.byEmail[a.email] = a.id
	return a.id
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		authError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}
	if body.Email == "" {
		authError(w, http.StatusBadRequest, "validation_failed", "Anonymous sign-ins are disabled")
		return
	}
	if len(body.Password) < 6 {
		authError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters")
		return
	}

	s.mu.Lock()
	if _, ok := s.byEmail[strings.ToLower(body.Email)]; ok {
		s.mu.Unlock()
		authError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}
	id := s.addAccountLocked(body.Email, body.Password, body.Data)
	view := s.accounts[id].view()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		authError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var a *account
	switch r.URL.Query().Get("grant_type") {
	case "password":
		id, ok := s.byEmail[strings.ToLower(body.Email)]
		if ok && s.accounts[id].password == body.Password {
			a = s.accounts[id]
		}
		if a == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
	case "refresh_token":
		id, ok := s.refresh[body.RefreshToken]
		if !ok {
			authError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(s.refresh, body.RefreshToken)
		a = s.accounts[id]
	default:
		authError(w, http.StatusBadRequest, "validation_failed", "unsupported_grant_type")
		return
	}

	session, err := s.issueLocked(a)
	if err != nil {
		authError(w, http.StatusInternalServerError, "unexpected_failure", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) issueLocked(a *account) (map[string]any, error) {
	exp := time.Now().Add(TokenTTL)
	claims := jwt.MapClaims{
		"sub":   a.id,
		"email": a.email,
		"role":  "authenticated",
		"exp":   exp.Unix(),
		"iat":   time.Now().Unix(),
		"jti":   uuid.NewString(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	refresh := uuid.NewString()
	s.access[access] = a.id
	s.refresh[refresh] = a.id
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int(TokenTTL.Seconds()),
		"expires_at":    exp.Unix(),
		"user":          a.view(),
	}, nil
}

// bearerAccountLocked resolves the request's access token. Callers hold s.mu.
func (s *Server) bearerAccountLocked(r *http.Request) *account {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil
	}
	id, ok := s.access[token]
	if !ok {
		return nil
	}
	return s.accounts[id]
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := s.bearerAccountLocked(r)
	var view map[string]any
	if a != nil {
		view = a.view()
	}
	s.mu.Unlock()
	if a == nil {
		authError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature, token is malformed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.bearerAccountLocked(r)
	if a == nil {
		authError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature, token is malformed")
		return
	}
	for tok, id := range s.access {
		if id == a.id {
			delete(s.access, tok)
		}
	}
	for tok, id := range s.refresh {
		if id == a.id {
			delete(s.refresh, tok)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		authError(w, http.StatusBadRequest, "validation_failed", "To send a recovery email, you need to provide the email address")
		return
	}
	s.mu.Lock()
	s.recover = append(s.recover, body.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{})
}
