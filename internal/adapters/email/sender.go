// Package email delivers transactional mail: payment receipts and
// password reset links.
package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("email has no recipient")

// Message is one outgoing email.
type Message struct {
	To      []string
	From    string // overrides the sender's default, e.g. "APH Academy <noreply@aph.example>"
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	// Tags are attached for delivery analytics, e.g. {"kind": "receipt"}.
	Tags map[string]string
}

// Receipt is the provider's acknowledgement.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	return nil
}
