package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClient calls the GoTrue endpoints under /auth/v1.
type AuthClient struct {
	c *Client
}

// Auth returns the auth API of the project.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{c: c}
}

// AuthUser is GoTrue's user object.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Session is returned by the token endpoint.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         AuthUser `json:"user"`
}

// signUpResponse is either a session (auto-confirm) or a bare user.
type signUpResponse struct {
	AuthUser
	User *AuthUser `json:"user"`
}

// SignUp registers email/password with data stored as user metadata.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, data map[string]any) (AuthUser, error) {
	var resp signUpResponse
	err := a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/signup",
		body:    map[string]any{"email": email, "password": password, "data": data},
	}, &resp)
	if err != nil {
		return AuthUser{}, err
	}
	if resp.User != nil {
		return *resp.User, nil
	}
	return resp.AuthUser, nil
}

// SignInWithPassword exchanges credentials for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/token",
		query:   "grant_type=password",
		body:    map[string]string{"email": email, "password": password},
	}, &s)
	return s, err
}

// RefreshSession exchanges a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	var s Session
	err := a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/token",
		query:   "grant_type=refresh_token",
		body:    map[string]string{"refresh_token": refreshToken},
	}, &s)
	return s, err
}

// SignOut revokes the session behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	return a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/logout",
		token:   accessToken,
	}, nil)
}

// GetUser resolves accessToken to its user, verifying it server side.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (AuthUser, error) {
	var u AuthUser
	err := a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodGet,
		path:    "/auth/v1/user",
		token:   accessToken,
	}, &u)
	return u, err
}

// ResetPasswordForEmail asks the provider to mail a recovery link.
func (a *AuthClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	return a.c.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/recover",
		body:    map[string]string{"email": email},
	}, nil)
}

// ParseClaims reads the registered claims of an access token without
// verifying its signature. Verification is the provider's job (GetUser).
func ParseClaims(accessToken string) (jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return jwt.RegisteredClaims{}, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}
