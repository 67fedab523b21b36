package user

import (
	"context"
	"time"

	domain "aph/internal/domain/user"
)

// Store persists User state.
//
// GetByID and GetByEmail return (nil, nil) when no record matches; any
// other failure is returned as an error. Update returns storage.ErrNotFound
// for an unknown id and storage.ErrConflict when the email is taken.
type Store interface {
	Create(ctx context.Context, n domain.NewUser) (domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.User, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// prepare fills defaults and validates a new user.
func prepare(n domain.NewUser) (domain.NewUser, error) {
	n.Email = domain.NormalizeEmail(n.Email)
	if n.Role == "" {
		n.Role = domain.RoleUser
	}
	if err := n.Validate(); err != nil {
		return domain.NewUser{}, err
	}
	return n, nil
}
