package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aph/internal/adapters/backend"
	"aph/internal/application/forms"
	"aph/internal/domain/activity"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
	"aph/internal/domain/user"
	"aph/internal/observability/metrics"
)

// ErrProgramNotFound is returned when the selected program does not exist.
var ErrProgramNotFound = errors.New("selected program not found")

// PayerStore defines the user store interface needed by SubmitPayment.
type PayerStore interface {
	Create(ctx context.Context, n user.NewUser) (user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// ProgramStoreForPayment defines the program store interface needed by SubmitPayment.
type ProgramStoreForPayment interface {
	GetByID(ctx context.Context, id string) (*program.Program, error)
	AdjustParticipants(ctx context.Context, id string, delta int) (program.Program, error)
}

// PaymentStoreForPayment defines the payment store interface needed by SubmitPayment.
type PaymentStoreForPayment interface {
	Create(ctx context.Context, n payment.NewPayment) (payment.Payment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// EnrollmentStoreForPayment defines the enrollment store interface needed by SubmitPayment.
type EnrollmentStoreForPayment interface {
	Create(ctx context.Context, n enrollment.NewEnrollment) (enrollment.Enrollment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ActivityLogger appends to the activity trail.
type ActivityLogger interface {
	Log(ctx context.Context, n activity.NewLog) (activity.Log, error)
}

// ReceiptSender delivers the payment confirmation.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, r Receipt) error
}

// SubmitPaymentInput carries the checkout form and request context.
type SubmitPaymentInput struct {
	Form      forms.Payment
	Payer     *user.AuthUser // nil for an anonymous visitor
	IPAddress string
	UserAgent string
}

// SubmitPaymentDeps holds dependencies for SubmitPayment.
type SubmitPaymentDeps struct {
	Users       PayerStore
	Programs    ProgramStoreForPayment
	Payments    PaymentStoreForPayment
	Enrollments EnrollmentStoreForPayment
	Activity    ActivityLogger
	// Tx runs the money-moving steps in one transaction. When nil the steps
	// are compensated in reverse order on failure.
	Tx       backend.TxFunc
	Receipts ReceiptSender // optional
	Now      func() time.Time
}

// SubmitPaymentResult is what the payer sees after checkout.
type SubmitPaymentResult struct {
	Payer      user.User
	Program    program.Program
	Payment    payment.Payment
	Enrollment enrollment.Enrollment
}

// ExecuteSubmitPayment records a card payment for a program and enrolls the payer.
// PRE: Form has not been validated yet; Payer may be nil
// POST: Payment, enrollment, participant count and activity entry all exist, or none do
// INVARIANT: Payment amount equals the program price at the time of purchase
func ExecuteSubmitPayment(ctx context.Context, input SubmitPaymentInput, deps SubmitPaymentDeps) (SubmitPaymentResult, error) {
	form := input.Form
	if err := form.Validate(); err != nil {
		metrics.ObservePayment("invalid")
		return SubmitPaymentResult{}, err
	}
	now := deps.Now().UTC()

	payer, err := resolvePayer(ctx, form, input.Payer, deps.Users)
	if err != nil {
		metrics.ObservePayment("error")
		return SubmitPaymentResult{}, err
	}

	prog, err := deps.Programs.GetByID(ctx, form.ProgramID)
	if err != nil {
		metrics.ObservePayment("error")
		return SubmitPaymentResult{}, err
	}
	if prog == nil {
		metrics.ObservePayment("invalid")
		return SubmitPaymentResult{}, ErrProgramNotFound
	}
	if err := prog.CheckEnrollable(); err != nil {
		metrics.ObservePayment("rejected")
		return SubmitPaymentResult{}, err
	}

	res := SubmitPaymentResult{Payer: payer}
	steps := func(ctx context.Context, undo func(compensation)) error {
		method := payment.MethodForCardType(payment.CardType(form.CardNumber))
		p, err := deps.Payments.Create(ctx, payment.NewPayment{
			UserID:        payer.ID,
			ProgramID:     prog.ID,
			Amount:        prog.Price,
			Currency:      payment.DefaultCurrency,
			PaymentMethod: method,
			CardLastFour:  payment.LastFour(form.CardNumber),
			Status:        payment.StatusCompleted,
			TransactionID: payment.NewTransactionID(now),
			PaymentDate:   now,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		res.Payment = p
		undo(compensation{"delete_payment", func(ctx context.Context) error {
			_, err := deps.Payments.Delete(ctx, p.ID)
			return err
		}})

		e, err := deps.Enrollments.Create(ctx, enrollment.ForTerm(payer.ID, prog.ID, p.ID, now))
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		res.Enrollment = e
		undo(compensation{"delete_enrollment", func(ctx context.Context) error {
			_, err := deps.Enrollments.Delete(ctx, e.ID)
			return err
		}})

		updated, err := deps.Programs.AdjustParticipants(ctx, prog.ID, 1)
		if err != nil {
			return fmt.Errorf("count participant: %w", err)
		}
		res.Program = updated
		undo(compensation{"release_seat", func(ctx context.Context) error {
			_, err := deps.Programs.AdjustParticipants(ctx, prog.ID, -1)
			return err
		}})

		entry := activity.New(payer.ID, activity.ActionPaymentCompleted, activity.EntityPayment, p.ID).
			WithDetail("amount", p.Amount).
			WithDetail("program", prog.Name).
			WithDetail("paymentMethod", string(p.PaymentMethod)).
			WithRequest(input.IPAddress, input.UserAgent)
		if _, err := deps.Activity.Log(ctx, entry); err != nil {
			return fmt.Errorf("log activity: %w", err)
		}
		return nil
	}

	if err := runAtomically(ctx, deps.Tx, "submit_payment", steps); err != nil {
		slog.Error("payment_event", "event", "payment_failed", "user_id", payer.ID, "program_id", prog.ID, "error", err)
		metrics.ObservePayment("failed")
		return SubmitPaymentResult{}, err
	}
	metrics.ObservePayment("completed")
	slog.Info("payment_event", "event", "payment_completed",
		"payment_id", res.Payment.ID, "user_id", payer.ID, "program_id", prog.ID,
		"amount", res.Payment.Amount, "method", res.Payment.PaymentMethod)

	if deps.Receipts != nil {
		r := Receipt{To: form.Email, Name: payer.Name, Payment: res.Payment, Program: res.Program, Enrollment: res.Enrollment}
		if err := deps.Receipts.SendReceipt(ctx, r); err != nil {
			slog.Warn("payment_event", "event", "receipt_failed", "payment_id", res.Payment.ID, "error", err)
		}
	}
	return res, nil
}

// resolvePayer picks the signed-in user, else the user with the form's
// email, else registers a new user from the cardholder details. An
// anonymous checkout with a registered email pays for that account
// without changing its profile.
func resolvePayer(ctx context.Context, form forms.Payment, current *user.AuthUser, users PayerStore) (user.User, error) {
	if current != nil && current.IsAuthenticated {
		u, err := users.GetByID(ctx, current.ID)
		if err != nil {
			return user.User{}, err
		}
		if u != nil {
			return *u, nil
		}
	}
	u, err := users.GetByEmail(ctx, user.NormalizeEmail(form.Email))
	if err != nil {
		return user.User{}, err
	}
	if u != nil {
		return *u, nil
	}
	created, err := users.Create(ctx, user.NewUser{
		Email:    form.Email,
		Name:     form.CardholderName,
		Phone:    form.Phone,
		Role:     user.RoleUser,
		IsActive: true,
	})
	if err != nil {
		return user.User{}, fmt.Errorf("create payer: %w", err)
	}
	slog.Info("payment_event", "event", "payer_created", "user_id", created.ID)
	return created, nil
}
