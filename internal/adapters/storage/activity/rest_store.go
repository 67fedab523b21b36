package activity

import (
	"context"
	"time"

	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/activity"
)

const table = "activity_logs"

type row struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (r row) toDomain() domain.Log {
	details := r.Details
	if details == nil {
		details = map[string]any{}
	}
	return domain.Log{
		ID: r.ID, UserID: r.UserID, Action: r.Action, EntityType: domain.EntityType(r.EntityType),
		EntityID: r.EntityID, Details: details, IPAddress: r.IPAddress, UserAgent: r.UserAgent,
		CreatedAt: r.CreatedAt,
	}
}

func fromDomain(l domain.Log) row {
	return row{
		ID: l.ID, UserID: l.UserID, Action: l.Action, EntityType: string(l.EntityType),
		EntityID: l.EntityID, Details: l.Details, IPAddress: l.IPAddress, UserAgent: l.UserAgent,
		CreatedAt: l.CreatedAt,
	}
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates an activity log store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// Log appends an entry.
func (s *RESTStore) Log(ctx context.Context, entry domain.NewLog) (domain.Log, error) {
	if err := entry.Validate(); err != nil {
		return domain.Log{}, err
	}
	var out row
	if err := s.c.From(table).Insert(fromDomain(fromNew(entry))).Single().Execute(ctx, &out); err != nil {
		return domain.Log{}, err
	}
	return out.toDomain(), nil
}

// List returns one page of entries, newest first.
func (s *RESTStore) List(ctx context.Context, limit, offset int) ([]domain.Log, error) {
	limit, offset = page(limit, offset)
	return s.query(ctx, s.c.From(table).Select("*").Range(offset, offset+limit-1))
}

// ListByUser returns a user's entries, newest first.
func (s *RESTStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Log, error) {
	limit, _ = page(limit, 0)
	return s.query(ctx, s.c.From(table).Select("*").Eq("user_id", userID).Range(0, limit-1))
}

func (s *RESTStore) query(ctx context.Context, q *supabase.Query) ([]domain.Log, error) {
	var rows []row
	if err := q.Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	logs := make([]domain.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toDomain())
	}
	return logs, nil
}
