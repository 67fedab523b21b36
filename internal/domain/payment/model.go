package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Method is how a payment was made.
type Method string

// Payment method constants
const (
	MethodCreditCard Method = "credit_card"
	MethodVisa       Method = "visa"
	MethodMastercard Method = "mastercard"
	MethodAmex       Method = "amex"
)

// Status is the lifecycle state of a payment.
type Status string

// Payment status constants
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// DefaultCurrency is used when a payment does not name one.
const DefaultCurrency = "USD"

// ValidMethods contains all valid payment methods.
var ValidMethods = []Method{MethodCreditCard, MethodVisa, MethodMastercard, MethodAmex}

// ValidStatuses contains all valid payment statuses.
var ValidStatuses = []Status{StatusPending, StatusCompleted, StatusFailed, StatusRefunded}

// transitions lists the legal next states for each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusPending},
	StatusCompleted: {StatusRefunded},
	StatusRefunded:  nil,
}

// Domain errors
var (
	ErrEmptyUserID        = errors.New("payment user id cannot be empty")
	ErrEmptyProgramID     = errors.New("payment program id cannot be empty")
	ErrNegativeAmount     = errors.New("payment amount cannot be negative")
	ErrInvalidMethod      = errors.New("payment method must be one of: credit_card, visa, mastercard, amex")
	ErrInvalidStatus      = errors.New("payment status must be one of: pending, completed, failed, refunded")
	ErrInvalidLastFour    = errors.New("card last four must be exactly 4 digits")
	ErrEmptyTransactionID = errors.New("transaction id cannot be empty")
)

// ErrInvalidTransition is returned when a status change is not allowed.
type ErrInvalidTransition struct {
	From, To Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("payment cannot move from %s to %s", e.From, e.To)
}

// Payment records money received for a program.
type Payment struct {
	ID            string
	UserID        string
	ProgramID     string
	Amount        float64
	Currency      string
	PaymentMethod Method
	CardLastFour  string
	Status        Status
	TransactionID string
	PaymentDate   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Notes         string
}

// NewPayment carries the caller-supplied fields of a payment.
type NewPayment struct {
	UserID        string
	ProgramID     string
	Amount        float64
	Currency      string
	PaymentMethod Method
	CardLastFour  string
	Status        Status
	TransactionID string
	PaymentDate   time.Time
	Notes         string
}

// Payment returns the entity described by n, without identity or timestamps.
// POST: Currency defaults to USD
func (n NewPayment) Payment() Payment {
	currency := n.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return Payment{
		UserID:        n.UserID,
		ProgramID:     n.ProgramID,
		Amount:        n.Amount,
		Currency:      currency,
		PaymentMethod: n.PaymentMethod,
		CardLastFour:  n.CardLastFour,
		Status:        n.Status,
		TransactionID: n.TransactionID,
		PaymentDate:   n.PaymentDate,
		Notes:         n.Notes,
	}
}

// Validate checks if the Payment has valid data.
// PRE: Payment struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(p.ProgramID) == "" {
		return ErrEmptyProgramID
	}
	if p.Amount < 0 {
		return ErrNegativeAmount
	}
	if !p.PaymentMethod.Valid() {
		return ErrInvalidMethod
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if !isFourDigits(p.CardLastFour) {
		return ErrInvalidLastFour
	}
	if strings.TrimSpace(p.TransactionID) == "" {
		return ErrEmptyTransactionID
	}
	return nil
}

// TransitionTo moves the payment to next if the lifecycle allows it.
// Re-applying the current status is a no-op.
// PRE: next is a valid status
// POST: Status is next, or an error and no change
func (p *Payment) TransitionTo(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !p.Status.CanTransitionTo(next) {
		return ErrInvalidTransition{From: p.Status, To: next}
	}
	p.Status = next
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

// Valid reports whether m is one of the enumerated methods.
func (m Method) Valid() bool {
	for _, v := range ValidMethods {
		if v == m {
			return true
		}
	}
	return false
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
