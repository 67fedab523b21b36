// Package session keeps signed-in sessions between requests.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultTTL is how long a session lives after it is created.
const DefaultTTL = 24 * time.Hour

// Session is what the server remembers about a signed-in user. The role is
// a snapshot taken at sign-in and refreshed whenever the user is resolved.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// expired reports whether s has outlived ttl at now.
func (s Session) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// NewToken returns a random opaque session token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
