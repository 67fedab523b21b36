package settings

import (
	"context"
	"encoding/json"
	"time"

	"aph/internal/adapters/supabase"
	domain "aph/internal/domain/settings"
)

const table = "admin_settings"

type row struct {
	ID          string          `json:"id,omitempty"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description,omitempty"`
	UpdatedBy   string          `json:"updated_by"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r row) toDomain() domain.Setting {
	return domain.Setting{
		ID: r.ID, Key: r.Key, Value: r.Value, Description: r.Description,
		UpdatedBy: r.UpdatedBy, UpdatedAt: r.UpdatedAt,
	}
}

// RESTStore implements Store against the hosted backend.
type RESTStore struct {
	c *supabase.Client
}

// NewRESTStore creates a settings store backed by c.
func NewRESTStore(c *supabase.Client) *RESTStore {
	return &RESTStore{c: c}
}

// List returns every setting, most recently updated first.
func (s *RESTStore) List(ctx context.Context) ([]domain.Setting, error) {
	var rows []row
	if err := s.c.From(table).Select("*").Order("updated_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Setting, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Upsert sets key to value, merging on the key column. The id is left to
// the backend so an existing row keeps its own.
func (s *RESTStore) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (domain.Setting, error) {
	if err := domain.ValidateUpsert(key, value); err != nil {
		return domain.Setting{}, err
	}
	var out row
	err := s.c.From(table).
		Upsert(row{Key: key, Value: value, UpdatedBy: updatedBy, UpdatedAt: time.Now().UTC()}, "key").
		Single().
		Execute(ctx, &out)
	if err != nil {
		return domain.Setting{}, err
	}
	return out.toDomain(), nil
}
