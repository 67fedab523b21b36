package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/user"
)

const table = "users"

// row is the wire shape of a users record.
type row struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (r row) toDomain() domain.User {
	return domain.User{
		ID: r.ID, Email: r.Email, Name: r.Name, Phone: r.Phone, Role: domain.Role(r.Role),
		IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, LastLogin: r.LastLogin,
	}
}

func fromDomain(u domain.User) row {
	return row{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: string(u.Role),
		IsActive: u.IsActive, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt, LastLogin: u.LastLogin,
	}
}

// patchRow renders only the fields the patch sets.
func patchRow(p domain.Patch, now time.Time) map[string]any {
	m := map[string]any{"updated_at": now}
	if p.Email != nil {
		m["email"] = domain.NormalizeEmail(*p.Email)
	}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Phone != nil {
		m["phone"] = *p.Phone
	}
	if p.Role != nil {
		m["role"] = string(*p.Role)
	}
	if p.IsActive != nil {
		m["is_active"] = *p.IsActive
	}
	if p.LastLogin != nil {
		m["last_login"] = *p.LastLogin
	}
	return m
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates a user store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Create inserts a user.
func (s *RESTStore) Create(ctx context.Context, n domain.NewUser) (domain.User, error) {
	n, err := prepare(n)
	if err != nil {
		return domain.User{}, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u := domain.User{
		ID: n.ID, Email: n.Email, Name: n.Name, Phone: n.Phone, Role: n.Role,
		IsActive: n.IsActive, CreatedAt: now, UpdatedAt: now,
	}
	var out row
	if err := s.c.From(table).Insert(fromDomain(u)).Single().Execute(ctx, &out); err != nil {
		return domain.User{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// GetByID retrieves a User by its ID, or nil if not found.
func (s *RESTStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getOne(ctx, "id", id)
}

// GetByEmail retrieves a User by email, or nil if not found.
func (s *RESTStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email", domain.NormalizeEmail(email))
}

func (s *RESTStore) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	var r row
	err := s.c.From(table).Select("*").Eq(column, value).Single().Execute(ctx, &r)
	if errors.Is(err, supabase.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := r.toDomain()
	return &u, nil
}

// Update applies patch to the user with id.
func (s *RESTStore) Update(ctx context.Context, id string, patch domain.Patch) (domain.User, error) {
	if err := patch.Validate(); err != nil {
		return domain.User{}, err
	}
	var out row
	err := s.c.From(table).Update(patchRow(patch, time.Now().UTC())).Eq("id", id).Single().Execute(ctx, &out)
	if err != nil {
		return domain.User{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// Delete removes a User and reports whether it existed.
func (s *RESTStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed []row
	if err := s.c.From(table).Delete().Eq("id", id).Execute(ctx, &removed); err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}

// List retrieves all users, newest first.
func (s *RESTStore) List(ctx context.Context) ([]domain.User, error) {
	var rows []row
	if err := s.c.From(table).Select("*").Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// TouchLastLogin stamps the last sign-in time.
func (s *RESTStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.Update(ctx, id, domain.Patch{LastLogin: &at})
	return err
}
