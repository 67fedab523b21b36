package program

import (
	"context"

	domain "aph/internal/domain/program"
)

// Store persists Program state.
type Store interface {
	Create(ctx context.Context, n domain.NewProgram) (domain.Program, error)
	GetByID(ctx context.Context, id string) (*domain.Program, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Program, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Program, error)
	Delete(ctx context.Context, id string) (bool, error)
	// AdjustParticipants moves current_participants by delta atomically.
	// It returns domain.ErrFull or domain.ErrNegativeEnrollment when the
	// result would leave [0, max_participants], and storage.ErrNotFound for
	// an unknown id.
	AdjustParticipants(ctx context.Context, id string, delta int) (domain.Program, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	ActiveOnly bool
}

// capacityError picks the domain error for a rejected adjustment.
func capacityError(delta int) error {
	if delta < 0 {
		return domain.ErrNegativeEnrollment
	}
	return domain.ErrFull
}
