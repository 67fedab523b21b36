// Package identity implements a self-hosted identity provider: bcrypt
// password credentials in the local database and HS256 access and refresh
// tokens.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/storage/credential"
	domain "aph/internal/domain/identity"
	"aph/internal/domain/user"
)

const (
	// AccessTokenTTL is how long an issued access token is accepted.
	AccessTokenTTL = time.Hour
	// RefreshTokenTTL is how long a refresh token can renew a session.
	RefreshTokenTTL = 7 * 24 * time.Hour
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour

	issuer = "aph"

	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// ErrInvalidResetToken is returned for unknown, used or expired reset tokens.
var ErrInvalidResetToken = errors.New("password reset link is invalid or has expired")

// ResetNotifier delivers a reset token to the account holder.
type ResetNotifier func(ctx context.Context, email, token string) error

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider is an identity provider backed by the local database.
type LocalProvider struct {
	creds  credential.Store
	secret []byte
	notify ResetNotifier
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> token expiry, access and refresh
}

// NewLocalProvider creates a provider signing tokens with secret.
// PRE: len(secret) >= 32
func NewLocalProvider(creds credential.Store, secret []byte, notify ResetNotifier) *LocalProvider {
	return &LocalProvider{
		creds:   creds,
		secret:  secret,
		notify:  notify,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// SignUp creates a credential.
// POST: Returns ErrWeakPassword or ErrAlreadyRegistered on rejection
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, meta domain.Metadata) (domain.Identity, error) {
	if len(password) < domain.MinPasswordLength {
		return domain.Identity{}, domain.ErrWeakPassword
	}
	email = user.NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	c := credential.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     meta,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.creds.Create(ctx, c); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Identity{}, domain.ErrAlreadyRegistered
		}
		return domain.Identity{}, err
	}
	return toIdentity(c), nil
}

// SignIn checks the password and issues a token pair.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (domain.Identity, domain.Tokens, error) {
	c, err := p.creds.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return domain.Identity{}, domain.Tokens{}, err
	}
	if c == nil || bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return domain.Identity{}, domain.Tokens{}, domain.ErrInvalidCredentials
	}
	tokens, err := p.issue(*c)
	if err != nil {
		return domain.Identity{}, domain.Tokens{}, err
	}
	return toIdentity(*c), tokens, nil
}

// SignOut revokes accessToken until it would have expired anyway.
// Signing out an already invalid token is not an error.
func (p *LocalProvider) SignOut(_ context.Context, accessToken string) error {
	cl, err := p.parse(accessToken, audienceAccess)
	if err != nil {
		return nil
	}
	p.revoke(cl)
	return nil
}

// GetUser verifies accessToken and returns its identity.
// POST: Returns ErrInvalidToken for bad, expired, revoked or orphaned tokens
func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (domain.Identity, error) {
	c, _, err := p.verify(ctx, accessToken, audienceAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	return toIdentity(*c), nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// refresh token is spent.
// POST: Returns ErrInvalidToken for bad, expired, spent or orphaned tokens
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	c, cl, err := p.verify(ctx, refreshToken, audienceRefresh)
	if err != nil {
		return domain.Tokens{}, err
	}
	p.revoke(cl)
	return p.issue(*c)
}

// verify parses token for audience and loads its credential.
func (p *LocalProvider) verify(ctx context.Context, token, audience string) (*credential.Credential, *claims, error) {
	cl, err := p.parse(token, audience)
	if err != nil {
		return nil, nil, domain.ErrInvalidToken
	}
	p.mu.Lock()
	_, revoked := p.revoked[cl.ID]
	p.mu.Unlock()
	if revoked {
		return nil, nil, domain.ErrInvalidToken
	}
	c, err := p.creds.GetByID(ctx, cl.Subject)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, domain.ErrInvalidToken
	}
	return c, cl, nil
}

// revoke rejects cl's token until it would have expired anyway.
func (p *LocalProvider) revoke(cl *claims) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[cl.ID] = cl.ExpiresAt.Time
	p.pruneLocked()
}

// ResetPassword issues a reset token and hands it to the notifier.
// Unknown emails succeed silently so accounts cannot be probed.
func (p *LocalProvider) ResetPassword(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	c, err := p.creds.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if c == nil {
		slog.Info("auth_event", "event", "reset_unknown_email", "email", email)
		return nil
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	now := p.now().UTC()
	if err := p.creds.SaveResetToken(ctx, credential.ResetToken{
		Token: token, CredentialID: c.ID, ExpiresAt: now.Add(ResetTokenTTL), CreatedAt: now,
	}); err != nil {
		return err
	}
	if p.notify == nil {
		return nil
	}
	return p.notify(ctx, c.Email, token)
}

// CompletePasswordReset redeems a reset token and sets a new password.
// PRE: token came from ResetPassword
// POST: The token cannot be redeemed again
func (p *LocalProvider) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}
	t, err := p.creds.GetResetToken(ctx, token)
	if err != nil {
		return err
	}
	if t == nil || !t.Valid(p.now()) {
		return ErrInvalidResetToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// Claiming the token first keeps two concurrent redemptions from both
	// setting a password.
	if err := p.creds.MarkResetTokenUsed(ctx, token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if err := p.creds.UpdatePassword(ctx, t.CredentialID, string(hash)); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "password_reset", "credential_id", t.CredentialID)
	return nil
}

// issue signs an access token and a refresh token for c.
func (p *LocalProvider) issue(c credential.Credential) (domain.Tokens, error) {
	now := p.now()
	exp := now.Add(AccessTokenTTL)
	access, err := p.sign(c, audienceAccess, now, exp)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := p.sign(c, audienceRefresh, now, now.Add(RefreshTokenTTL))
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (p *LocalProvider) sign(c credential.Credential, audience string, now, exp time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   c.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(p.secret)
}

// parse verifies token and requires it to be issued for audience, so an
// access token cannot be used as a refresh token or the other way round.
func (p *LocalProvider) parse(token, audience string) (*claims, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(token, cl, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// pruneLocked forgets revocations of tokens that have expired. Callers hold p.mu.
func (p *LocalProvider) pruneLocked() {
	now := p.now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
}

func toIdentity(c credential.Credential) domain.Identity {
	return domain.Identity{ID: c.ID, Email: c.Email, Metadata: c.Metadata, CreatedAt: c.CreatedAt}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
