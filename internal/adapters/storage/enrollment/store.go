package enrollment

import (
	"context"

	domain "aph/internal/domain/enrollment"
)

// Store persists Enrollment state.
type Store interface {
	Create(ctx context.Context, n domain.NewEnrollment) (domain.Enrollment, error)
	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
	List(ctx context.Context) ([]domain.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Enrollment, error)
	// Delete exists to undo a partially applied payment submission.
	Delete(ctx context.Context, id string) (bool, error)
}
