// Package identity holds the provider-neutral view of an authenticated
// principal and its tokens.
package identity

import (
	"errors"
	"time"
)

// Messages mirror the hosted provider so callers see the same text
// regardless of which provider is configured.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrAlreadyRegistered  = errors.New("User already registered")
	ErrInvalidToken       = errors.New("invalid JWT: unable to parse or verify signature")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
)

// MinPasswordLength is the shortest password any provider accepts.
const MinPasswordLength = 6

// Metadata is free-form profile data stored with the identity.
type Metadata map[string]any

// Identity is the provider's record of a principal. Its ID is also the
// primary key of the matching user record.
type Identity struct {
	ID        string
	Email     string
	Metadata  Metadata
	CreatedAt time.Time
}

// Tokens are the credentials returned by a successful sign-in.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (t Tokens) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
