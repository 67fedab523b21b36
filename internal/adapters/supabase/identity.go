package supabase

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "aph/internal/domain/identity"
)

// IdentityProvider adapts the GoTrue API to the provider-neutral identity
// contract used by the auth service.
type IdentityProvider struct {
	auth *AuthClient
}

// NewIdentityProvider wraps c's auth API.
func NewIdentityProvider(c *Client) *IdentityProvider {
	return &IdentityProvider{auth: c.Auth()}
}

// SignUp creates the identity. Provider errors pass through untouched so
// their message reaches the caller.
func (p *IdentityProvider) SignUp(ctx context.Context, email, password string, meta domain.Metadata) (domain.Identity, error) {
	u, err := p.auth.SignUp(ctx, email, password, meta)
	if err != nil {
		return domain.Identity{}, err
	}
	return toIdentity(u), nil
}

// SignIn checks credentials and returns the identity with its tokens.
func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (domain.Identity, domain.Tokens, error) {
	s, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domain.Identity{}, domain.Tokens{}, err
	}
	return toIdentity(s.User), toTokens(s), nil
}

// Refresh exchanges a refresh token for a new session. The hosted API
// rotates refresh tokens, so the returned pair replaces the old one.
func (p *IdentityProvider) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	s, err := p.auth.RefreshSession(ctx, refreshToken)
	if err != nil {
		return domain.Tokens{}, err
	}
	return toTokens(s), nil
}

// SignOut revokes accessToken.
func (p *IdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.auth.SignOut(ctx, accessToken)
}

// GetUser verifies accessToken with the provider.
func (p *IdentityProvider) GetUser(ctx context.Context, accessToken string) (domain.Identity, error) {
	u, err := p.auth.GetUser(ctx, accessToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return domain.Identity{}, domain.ErrInvalidToken
		}
		return domain.Identity{}, err
	}
	return toIdentity(u), nil
}

// ResetPassword triggers the provider's recovery email.
func (p *IdentityProvider) ResetPassword(ctx context.Context, email string) error {
	return p.auth.ResetPasswordForEmail(ctx, email)
}

func toIdentity(u AuthUser) domain.Identity {
	return domain.Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata, CreatedAt: u.CreatedAt}
}

func toTokens(s Session) domain.Tokens {
	t := domain.Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	switch {
	case s.ExpiresAt > 0:
		t.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		t.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	default:
		if claims, err := ParseClaims(s.AccessToken); err == nil && claims.ExpiresAt != nil {
			t.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return t
}
