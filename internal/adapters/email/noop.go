package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogSender logs messages instead of delivering them. It is used when no
// provider key is configured, and keeps what it was given so tests can
// inspect it.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewLogSender creates a new LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send records msg and logs its envelope.
func (s *LogSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()

	slog.Info("email_logged", "to", msg.To, "subject", msg.Subject)
	return Receipt{MessageID: fmt.Sprintf("log-%d", n), SentAt: time.Now()}, nil
}

// Sent returns a copy of every message recorded so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
