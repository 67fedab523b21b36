package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"aph/internal/adapters/storage/credential"
	"aph/internal/adapters/storage/storagetest"
	domain "aph/internal/domain/identity"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type captured struct {
	email, token string
}

func newProvider(t *testing.T) (*LocalProvider, *captured) {
	t.Helper()
	c := &captured{}
	p := NewLocalProvider(credential.NewSQLiteStore(storagetest.Open(t)), testSecret, func(_ context.Context, email, token string) error {
		c.email, c.token = email, token
		return nil
	})
	return p, c
}

func TestLocalProvider_SignUpSignIn(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()

	id, err := p.SignUp(ctx, "Sam@Example.com", "secret1", domain.Metadata{"name": "Sam"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.Email != "sam@example.com" || id.ID == "" {
		t.Errorf("identity = %+v", id)
	}

	got, tokens, err := p.SignIn(ctx, "sam@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got.ID != id.ID || tokens.AccessToken == "" || tokens.Expired(time.Now()) {
		t.Errorf("SignIn = %+v, %+v", got, tokens)
	}

	who, err := p.GetUser(ctx, tokens.AccessToken)
	if err != nil || who.ID != id.ID || who.Metadata["name"] != "Sam" {
		t.Errorf("GetUser = %+v, %v", who, err)
	}
}

func TestLocalProvider_Rejections(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.co", "12345", nil); !errors.Is(err, domain.ErrWeakPassword) {
		t.Errorf("short password err = %v", err)
	}
	if _, err := p.SignUp(ctx, "a@b.co", "123456", nil); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := p.SignUp(ctx, "A@B.co", "123456", nil); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, _, err := p.SignIn(ctx, "a@b.co", "wrong!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, _, err := p.SignIn(ctx, "nobody@b.co", "123456"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
	if _, err := p.GetUser(ctx, "not-a-jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("garbage token err = %v", err)
	}
}

func TestLocalProvider_SignOutRevokes(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.co", "123456", nil); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	_, tokens, err := p.SignIn(ctx, "a@b.co", "123456")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := p.SignOut(ctx, tokens.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := p.GetUser(ctx, tokens.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("revoked token err = %v", err)
	}
}

func TestLocalProvider_ExpiredToken(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.co", "123456", nil); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	_, tokens, err := p.SignIn(ctx, "a@b.co", "123456")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	p.now = func() time.Time { return time.Now().Add(AccessTokenTTL + time.Minute) }
	if _, err := p.GetUser(ctx, tokens.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expired token err = %v", err)
	}
}

func TestLocalProvider_Refresh(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.co", "123456", nil); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	_, tokens, err := p.SignIn(ctx, "a@b.co", "123456")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if tokens.RefreshToken == "" {
		t.Fatal("no refresh token issued")
	}
	if _, err := p.Refresh(ctx, tokens.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("access token as refresh token err = %v", err)
	}
	if _, err := p.GetUser(ctx, tokens.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("refresh token as access token err = %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(AccessTokenTTL + time.Minute) }
	next, err := p.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh after access expiry: %v", err)
	}
	if !next.ExpiresAt.After(tokens.ExpiresAt) || next.RefreshToken == tokens.RefreshToken {
		t.Errorf("refreshed tokens = %+v", next)
	}
	if _, err := p.GetUser(ctx, next.AccessToken); err != nil {
		t.Errorf("GetUser with refreshed token: %v", err)
	}
	if _, err := p.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("spent refresh token err = %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(2 * RefreshTokenTTL) }
	if _, err := p.Refresh(ctx, next.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expired refresh token err = %v", err)
	}
}

func TestLocalProvider_PasswordReset(t *testing.T) {
	p, sent := newProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.co", "old-pass", nil); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := p.ResetPassword(ctx, "nobody@b.co"); err != nil || sent.token != "" {
		t.Fatalf("unknown email: err = %v, token sent = %q", err, sent.token)
	}
	if err := p.ResetPassword(ctx, "A@b.co"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if sent.email != "a@b.co" || sent.token == "" {
		t.Fatalf("notifier got %+v", sent)
	}

	if err := p.CompletePasswordReset(ctx, sent.token, "new-pass"); err != nil {
		t.Fatalf("CompletePasswordReset: %v", err)
	}
	if err := p.CompletePasswordReset(ctx, sent.token, "again-pass"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("reuse err = %v", err)
	}
	if _, _, err := p.SignIn(ctx, "a@b.co", "old-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
	if _, _, err := p.SignIn(ctx, "a@b.co", "new-pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
