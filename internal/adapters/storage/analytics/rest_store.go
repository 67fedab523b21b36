package analytics

import (
	"context"
	"time"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/analytics"
)

// RESTStore fetches only the columns each reducer needs and reduces locally.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates an analytics store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Payments summarizes payments in [from, to].
func (s *RESTStore) Payments(ctx context.Context, from, to time.Time) (domain.PaymentSummary, error) {
	var rows []struct {
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
	}
	err := s.c.From("payments").
		Select("amount,status").
		Gte("payment_date", storage.FormatTime(from)).
		Lte("payment_date", storage.FormatTime(to)).
		Execute(ctx, &rows)
	if err != nil {
		return domain.PaymentSummary{}, err
	}
	in := make([]domain.PaymentRow, len(rows))
	for i, r := range rows {
		in[i] = domain.PaymentRow{Amount: r.Amount, Status: r.Status}
	}
	return domain.SummarizePayments(in), nil
}

// Users summarizes the user table.
func (s *RESTStore) Users(ctx context.Context, now time.Time) (domain.UserSummary, error) {
	var rows []struct {
		Role      string    `json:"role"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := s.c.From("users").Select("role,is_active,created_at").Execute(ctx, &rows); err != nil {
		return domain.UserSummary{}, err
	}
	in := make([]domain.UserRow, len(rows))
	for i, r := range rows {
		in[i] = domain.UserRow{Role: r.Role, IsActive: r.IsActive, CreatedAt: r.CreatedAt}
	}
	return domain.SummarizeUsers(in, now), nil
}

// Programs summarizes programs and enrollments.
func (s *RESTStore) Programs(ctx context.Context) (domain.ProgramSummary, error) {
	var programs []struct {
		IsActive bool `json:"is_active"`
	}
	if err := s.c.From("programs").Select("is_active").Execute(ctx, &programs); err != nil {
		return domain.ProgramSummary{}, err
	}
	var enrollments []struct {
		ProgramID string `json:"program_id"`
	}
	if err := s.c.From("enrollments").Select("program_id").Execute(ctx, &enrollments); err != nil {
		return domain.ProgramSummary{}, err
	}
	active := make([]bool, len(programs))
	for i, p := range programs {
		active[i] = p.IsActive
	}
	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.ProgramID
	}
	return domain.SummarizePrograms(active, ids), nil
}
