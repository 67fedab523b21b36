package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/payment"
)

const table = "payments"

type row struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ProgramID     string    `json:"program_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	CardLastFour  string    `json:"card_last_four"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	PaymentDate   time.Time `json:"payment_date"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r row) toDomain() domain.Payment {
	return domain.Payment{
		ID: r.ID, UserID: r.UserID, ProgramID: r.ProgramID, Amount: r.Amount, Currency: r.Currency,
		PaymentMethod: domain.Method(r.PaymentMethod), CardLastFour: r.CardLastFour,
		Status: domain.Status(r.Status), TransactionID: r.TransactionID, PaymentDate: r.PaymentDate,
		Notes: r.Notes, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func fromDomain(p domain.Payment) row {
	return row{
		ID: p.ID, UserID: p.UserID, ProgramID: p.ProgramID, Amount: p.Amount, Currency: p.Currency,
		PaymentMethod: string(p.PaymentMethod), CardLastFour: p.CardLastFour, Status: string(p.Status),
		TransactionID: p.TransactionID, PaymentDate: p.PaymentDate, Notes: p.Notes,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates a payment store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Create inserts a payment.
func (s *RESTStore) Create(ctx context.Context, n domain.NewPayment) (domain.Payment, error) {
	p := n.Payment()
	if err := p.Validate(); err != nil {
		return domain.Payment{}, err
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.PaymentDate.IsZero() {
		p.PaymentDate = now
	}
	var out row
	if err := s.c.From(table).Insert(fromDomain(p)).Single().Execute(ctx, &out); err != nil {
		return domain.Payment{}, storage.FromREST(err)
	}
	return out.toDomain(), nil
}

// GetByID retrieves a Payment, or nil if not found.
func (s *RESTStore) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
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

// ListByUser returns a user's payments, newest first.
func (s *RESTStore) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.list(ctx, s.c.From(table).Select("*").Eq("user_id", userID))
}

// List returns all payments, newest first.
func (s *RESTStore) List(ctx context.Context) ([]domain.Payment, error) {
	return s.list(ctx, s.c.From(table).Select("*"))
}

func (s *RESTStore) list(ctx context.Context, q *supabase.Query) ([]domain.Payment, error) {
	var rows []row
	if err := q.Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateStatus checks the transition locally, then writes it conditioned on
// the status it was checked against.
func (s *RESTStore) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Payment, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if p == nil {
		return domain.Payment{}, storage.ErrNotFound
	}
	prev := p.Status
	if err := p.TransitionTo(status); err != nil {
		return domain.Payment{}, err
	}
	var out row
	err = s.c.From(table).
		Update(map[string]any{"status": string(p.Status), "updated_at": time.Now().UTC()}).
		Eq("id", id).
		Eq("status", string(prev)).
		Single().
		Execute(ctx, &out)
	if errors.Is(err, supabase.ErrNoRows) {
		return domain.Payment{}, storage.ErrConcurrentUpdate
	}
	if err != nil {
		return domain.Payment{}, err
	}
	return out.toDomain(), nil
}

// Delete removes a Payment and reports whether it existed.
func (s *RESTStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed []row
	if err := s.c.From(table).Delete().Eq("id", id).Execute(ctx, &removed); err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}
