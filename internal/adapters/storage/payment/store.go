package payment

import (
	"context"

	domain "aph/internal/domain/payment"
)

// Store persists Payment state.
type Store interface {
	Create(ctx context.Context, n domain.NewPayment) (domain.Payment, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	// UpdateStatus moves a payment along its lifecycle. Illegal moves
	// return domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Payment, error)
	// Delete exists to undo a partially applied payment submission.
	Delete(ctx context.Context, id string) (bool, error)
}
