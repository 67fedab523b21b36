package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/enrollment"
)

const table = "enrollments"

type row struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProgramID string    `json:"program_id"`
	PaymentID string    `json:"payment_id"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r row) toDomain() domain.Enrollment {
	return domain.Enrollment{
		ID: r.ID, UserID: r.UserID, ProgramID: r.ProgramID, PaymentID: r.PaymentID,
		Status: domain.Status(r.Status), StartDate: r.StartDate, EndDate: r.EndDate,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromDomain(e domain.Enrollment) row {
	return row{
		ID: e.ID, UserID: e.UserID, ProgramID: e.ProgramID, PaymentID: e.PaymentID,
		Status: string(e.Status), StartDate: e.StartDate, EndDate: e.EndDate,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates an enrollment store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Create inserts an enrollment.
func (s *RESTStore) Create(ctx context.Context, n domain.NewEnrollment) (domain.Enrollment, error) {
	e := n.Enrollment()
	if err := e.Validate(); err != nil {
		return domain.Enrollment{}, err
	}
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	var out row
	if err := s.c.From(table).Insert(fromDomain(e)).Single().Execute(ctx, &out); err != nil {
		return domain.Enrollment{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// GetByID retrieves an Enrollment, or nil if not found.
func (s *RESTStore) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	var r row
	err := s.c.From(table).Select("*").Eq("id", id).Single().Execute(ctx, &r)
	if errors.Is(err, supabase.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e := r.toDomain()
	return &e, nil
}

// ListByUser returns a user's enrollments, newest first.
func (s *RESTStore) ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	return s.list(ctx, s.c.From(table).Select("*").Eq("user_id", userID))
}

// List returns all enrollments, newest first.
func (s *RESTStore) List(ctx context.Context) ([]domain.Enrollment, error) {
	return s.list(ctx, s.c.From(table).Select("*"))
}

func (s *RESTStore) list(ctx context.Context, q *supabase.Query) ([]domain.Enrollment, error) {
	var rows []row
	if err := q.Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Enrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateStatus checks the transition locally, then writes it conditioned on
// the status it was checked against.
func (s *RESTStore) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Enrollment, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if e == nil {
		return domain.Enrollment{}, storage.ErrNotFound
	}
	prev := e.Status
	if err := e.TransitionTo(status); err != nil {
		return domain.Enrollment{}, err
	}
	var out row
	err = s.c.From(table).
		Update(map[string]any{"status": string(e.Status), "updated_at": time.Now().UTC()}).
		Eq("id", id).
		Eq("status", string(prev)).
		Single().
		Execute(ctx, &out)
	if errors.Is(err, supabase.ErrNoRows) {
		return domain.Enrollment{}, storage.ErrConcurrentUpdate
	}
	if err != nil {
		return domain.Enrollment{}, err
	}
	return out.toDomain(), nil
}

// Delete removes an Enrollment and reports whether it existed.
func (s *RESTStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed []row
	if err := s.c.From(table).Delete().Eq("id", id).Execute(ctx, &removed); err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}
