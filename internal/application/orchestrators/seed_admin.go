package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"aph/internal/domain/identity"
	"aph/internal/domain/user"
)

// AdminIdentityProvider defines the identity operations needed by SeedAdmin.
type AdminIdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta identity.Metadata) (identity.Identity, error)
	SignIn(ctx context.Context, email, password string) (identity.Identity, identity.Tokens, error)
}

// AdminUserStore defines the user store interface needed by SeedAdmin.
type AdminUserStore interface {
	Create(ctx context.Context, n user.NewUser) (user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
}

// SeedAdminInput names the administrator account.
type SeedAdminInput struct {
	Email    string
	Password string
	Name     string
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	Provider AdminIdentityProvider
	Users    AdminUserStore
}

// ExecuteSeedAdmin makes sure an administrator exists. Admin is never a
// self-service role, so this is the only way the first one is created.
// PRE: Email is set; Password satisfies the provider's policy
// POST: A user record with role admin exists for Email
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, deps SeedAdminDeps) (user.User, error) {
	email := user.NormalizeEmail(input.Email)
	if email == "" {
		return user.User{}, user.ErrEmptyEmail
	}

	existing, err := deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return user.User{}, err
	}
	if existing != nil {
		if existing.Role == user.RoleAdmin {
			return *existing, nil
		}
		role := user.RoleAdmin
		promoted, err := deps.Users.Update(ctx, existing.ID, user.Patch{Role: &role})
		if err != nil {
			return user.User{}, err
		}
		slog.Info("seed_event", "event", "admin_promoted", "user_id", promoted.ID)
		return promoted, nil
	}

	name := input.Name
	if name == "" {
		name = "Administrator"
	}
	id, err := deps.Provider.SignUp(ctx, email, input.Password, identity.Metadata{"name": name, "role": string(user.RoleAdmin)})
	if err != nil {
		// The identity may survive from an earlier run whose user insert failed.
		var signInErr error
		id, _, signInErr = deps.Provider.SignIn(ctx, email, input.Password)
		if signInErr != nil {
			return user.User{}, errors.Join(err, signInErr)
		}
	}

	u, err := deps.Users.Create(ctx, user.NewUser{
		ID: id.ID, Email: email, Name: name, Role: user.RoleAdmin, IsActive: true,
	})
	if err != nil {
		return user.User{}, err
	}
	slog.Info("seed_event", "event", "admin_created", "user_id", u.ID)
	return u, nil
}
