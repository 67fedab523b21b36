package activity

import (
	"errors"
	"strings"
	"time"
)

// EntityType names the kind of record an activity refers to.
type EntityType string

const (
	EntityUser       EntityType = "user"
	EntityPayment    EntityType = "payment"
	EntityProgram    EntityType = "program"
	EntityEnrollment EntityType = "enrollment"
)

// ValidEntityTypes contains all valid entity types.
var ValidEntityTypes = []EntityType{EntityUser, EntityPayment, EntityProgram, EntityEnrollment}

// Well-known actions. Action is free text; these are the ones the
// application itself writes.
const (
	ActionPaymentCompleted     = "payment_completed"
	ActionPaymentStatusChanged = "payment_status_changed"
	ActionEnrollmentChanged    = "enrollment_status_changed"
	ActionRoleChanged          = "role_changed"
	ActionSettingUpdated       = "setting_updated"
	ActionSignedUp             = "signed_up"
)

// UnknownIP is recorded when the caller's address cannot be determined.
const UnknownIP = "unknown"

var (
	ErrEmptyAction       = errors.New("activity action cannot be empty")
	ErrInvalidEntityType = errors.New("activity entity type must be one of: user, payment, program, enrollment")
)

// Log is one immutable entry of the audit trail.
type Log struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Action     string         `json:"action"`
	EntityType EntityType     `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Details    map[string]any `json:"details"`
	IPAddress  string         `json:"ipAddress"`
	UserAgent  string         `json:"userAgent"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// NewLog is an activity about to be appended. The store assigns ID and
// CreatedAt.
type NewLog struct {
	UserID     string
	Action     string
	EntityType EntityType
	EntityID   string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

// New starts an activity for userID acting on an entity.
// POST: IPAddress defaults to "unknown"
func New(userID, action string, entityType EntityType, entityID string) NewLog {
	return NewLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    map[string]any{},
		IPAddress:  UnknownIP,
	}
}

// WithDetail adds one key to the details map.
func (n NewLog) WithDetail(key string, value any) NewLog {
	details := make(map[string]any, len(n.Details)+1)
	for k, v := range n.Details {
		details[k] = v
	}
	details[key] = value
	n.Details = details
	return n
}

// WithRequest sets IP address and user agent from the HTTP request.
// An empty ip keeps the "unknown" marker.
func (n NewLog) WithRequest(ip, userAgent string) NewLog {
	if ip != "" {
		n.IPAddress = ip
	}
	n.UserAgent = userAgent
	return n
}

// Validate checks if the entry can be appended.
// PRE: NewLog struct is populated
// POST: Returns nil if valid, error otherwise
func (n *NewLog) Validate() error {
	if strings.TrimSpace(n.Action) == "" {
		return ErrEmptyAction
	}
	if !n.EntityType.Valid() {
		return ErrInvalidEntityType
	}
	return nil
}

// Valid reports whether t is one of the enumerated entity types.
func (t EntityType) Valid() bool {
	for _, v := range ValidEntityTypes {
		if v == t {
			return true
		}
	}
	return false
}
