package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store. Sessions do not survive a
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store whose sessions expire after ttl
// (DefaultTTL when ttl <= 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{sessions: make(map[string]Session), ttl: ttl, now: time.Now}
}

// Create stores a new session and returns its token.
// POST: CreatedAt is set when zero
func (m *MemoryStore) Create(_ context.Context, s Session) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = s
	return token, nil
}

// Get retrieves a live session by token. Expired sessions are dropped.
func (m *MemoryStore) Get(_ context.Context, token string) (Session, bool, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}
	if s.expired(m.now(), m.ttl) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return Session{}, false, nil
	}
	return s, true, nil
}

// Update replaces the session for token in place, keeping its expiry.
// POST: Returns false when the token is unknown
func (m *MemoryStore) Update(_ context.Context, token string, s Session) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sessions[token]
	if !ok {
		return false, nil
	}
	s.CreatedAt = prev.CreatedAt
	m.sessions[token] = s
	return true, nil
}

// Delete removes a session by token.
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Sweep drops every expired session. Call it periodically.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, s := range m.sessions {
		if s.expired(now, m.ttl) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}
