package enrollment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an enrollment.
type Status string

// Enrollment status constants
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended"
)

// DefaultTerm is how long an enrollment bought through the payment form lasts.
const DefaultTerm = 90 * 24 * time.Hour

// ValidStatuses contains all valid enrollment statuses.
var ValidStatuses = []Status{StatusActive, StatusCompleted, StatusCancelled, StatusSuspended}

var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled, StatusSuspended},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// Domain errors
var (
	ErrEmptyUserID    = errors.New("enrollment user id cannot be empty")
	ErrEmptyProgramID = errors.New("enrollment program id cannot be empty")
	ErrEmptyPaymentID = errors.New("enrollment payment id cannot be empty")
	ErrInvalidStatus  = errors.New("enrollment status must be one of: active, completed, cancelled, suspended")
	ErrEndBeforeStart = errors.New("enrollment end date cannot be before start date")
)

// ErrInvalidTransition is returned when a status change is not allowed.
type ErrInvalidTransition struct {
	From, To Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("enrollment cannot move from %s to %s", e.From, e.To)
}

// Enrollment ties a user to a program through the payment that bought it.
type Enrollment struct {
	ID        string
	UserID    string
	ProgramID string
	PaymentID string
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEnrollment carries the caller-supplied fields of an enrollment.
type NewEnrollment struct {
	UserID    string
	ProgramID string
	PaymentID string
	Status    Status
	StartDate time.Time
	EndDate   time.Time
}

// ForTerm builds an active enrollment starting at start and lasting DefaultTerm.
func ForTerm(userID, programID, paymentID string, start time.Time) NewEnrollment {
	return NewEnrollment{
		UserID:    userID,
		ProgramID: programID,
		PaymentID: paymentID,
		Status:    StatusActive,
		StartDate: start,
		EndDate:   start.Add(DefaultTerm),
	}
}

// Enrollment returns the entity described by n, without identity or timestamps.
func (n NewEnrollment) Enrollment() Enrollment {
	return Enrollment{
		UserID:    n.UserID,
		ProgramID: n.ProgramID,
		PaymentID: n.PaymentID,
		Status:    n.Status,
		StartDate: n.StartDate,
		EndDate:   n.EndDate,
	}
}

// Validate checks if the Enrollment has valid data.
// PRE: Enrollment struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Enrollment) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(e.ProgramID) == "" {
		return ErrEmptyProgramID
	}
	if strings.TrimSpace(e.PaymentID) == "" {
		return ErrEmptyPaymentID
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if e.EndDate.Before(e.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// TransitionTo moves the enrollment to next if the lifecycle allows it.
// PRE: next is a valid status
// POST: Status is next, or an error and no change
func (e *Enrollment) TransitionTo(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !e.Status.CanTransitionTo(next) {
		return ErrInvalidTransition{From: e.Status, To: next}
	}
	e.Status = next
	return nil
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}
