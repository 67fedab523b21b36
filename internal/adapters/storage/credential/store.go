// Package credential persists the password credentials and reset tokens
// of the local identity provider.
package credential

import (
	"context"
	"time"

	"aph/internal/domain/identity"
)

// Credential is a local sign-in identity. Its ID doubles as the user id.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Metadata     identity.Metadata
	CreatedAt    time.Time
}

// ResetToken is a single-use password reset token.
type ResetToken struct {
	Token        string
	CredentialID string
	ExpiresAt    time.Time
	Used         bool
	CreatedAt    time.Time
}

// Valid reports whether the token can still be redeemed at now.
func (t ResetToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// Store persists Credential state.
type Store interface {
	// Create inserts a credential.
	// PRE: Email is normalized
	// POST: Returns storage.ErrConflict if the email is taken
	Create(ctx context.Context, c Credential) error
	GetByID(ctx context.Context, id string) (*Credential, error)
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SaveResetToken(ctx context.Context, t ResetToken) error
	GetResetToken(ctx context.Context, token string) (*ResetToken, error)
	// MarkResetTokenUsed returns storage.ErrNotFound if the token does not
	// exist or was already used.
	MarkResetTokenUsed(ctx context.Context, token string) error
}
