package program

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/program"
)

const table = "programs"

// maxCASAttempts bounds the compare-and-swap loop in AdjustParticipants.
const maxCASAttempts = 5

type row struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Price               float64   `json:"price"`
	AgeGroup            string    `json:"age_group"`
	Duration            string    `json:"duration"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (r row) toDomain() domain.Program {
	return domain.Program{
		ID: r.ID, Name: r.Name, Description: r.Description, Price: r.Price, AgeGroup: r.AgeGroup,
		Duration: r.Duration, MaxParticipants: r.MaxParticipants, CurrentParticipants: r.CurrentParticipants,
		IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromDomain(p domain.Program) row {
	return row{
		ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price, AgeGroup: p.AgeGroup,
		Duration: p.Duration, MaxParticipants: p.MaxParticipants, CurrentParticipants: p.CurrentParticipants,
		IsActive: p.IsActive, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates a program store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Create inserts a program.
func (s *RESTStore) Create(ctx context.Context, n domain.NewProgram) (domain.Program, error) {
	p := n.Program()
	if err := p.Validate(); err != nil {
		return domain.Program{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	var out row
	if err := s.c.From(table).Insert(fromDomain(p)).Single().Execute(ctx, &out); err != nil {
		return domain.Program{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// GetByID retrieves a Program, or nil if not found.
func (s *RESTStore) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	var r row
	err := s.c.From(table).Select("*").Eq("id", id).Single().Execute(ctx, &r)
	if errors.Is(err, supabase.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := r.toDomain()
	return &p, nil
}

// List retrieves programs, newest first.
func (s *RESTStore) List(ctx context.Context, filter ListFilter) ([]domain.Program, error) {
	q := s.c.From(table).Select("*")
	if filter.ActiveOnly {
		q = q.Eq("is_active", true)
	}
	var rows []row
	if err := q.Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Program, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Update applies patch after checking the merged record locally.
func (s *RESTStore) Update(ctx context.Context, id string, patch domain.Patch) (domain.Program, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Program{}, err
	}
	if current == nil {
		return domain.Program{}, storage.ErrNotFound
	}
	patch.Apply(current)
	if err := current.Validate(); err != nil {
		return domain.Program{}, err
	}
	current.UpdatedAt = time.Now().UTC()
	r := fromDomain(*current)
	var out row
	if err := s.c.From(table).Update(r).Eq("id", id).Single().Execute(ctx, &out); err != nil {
		return domain.Program{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// Delete removes a Program and reports whether it existed.
func (s *RESTStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed []row
	if err := s.c.From(table).Delete().Eq("id", id).Execute(ctx, &removed); err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}

// AdjustParticipants updates current_participants with a compare-and-swap
// on the previous value, retrying when another writer got there first.
func (s *RESTStore) AdjustParticipants(ctx context.Context, id string, delta int) (domain.Program, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return domain.Program{}, err
		}
		if current == nil {
			return domain.Program{}, storage.ErrNotFound
		}
		prev := current.CurrentParticipants
		if err := current.AdjustParticipants(delta); err != nil {
			return domain.Program{}, err
		}
		var updated []row
		err = s.c.From(table).
			Update(map[string]any{"current_participants": current.CurrentParticipants, "updated_at": time.Now().UTC()}).
			Eq("id", id).
			Eq("current_participants", prev).
			Execute(ctx, &updated)
		if err != nil {
			return domain.Program{}, err
		}
		if len(updated) == 1 {
			return updated[0].toDomain(), nil
		}
	}
	return domain.Program{}, storage.ErrConcurrentUpdate
}
