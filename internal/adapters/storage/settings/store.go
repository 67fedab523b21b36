package settings

import (
	"context"
	"encoding/json"

	domain "aph/internal/domain/settings"
)

// Store persists admin settings, one row per key.
type Store interface {
	// List returns every setting, most recently updated first.
	List(ctx context.Context) ([]domain.Setting, error)
	// Upsert sets key to value, creating the setting when it is new.
	// PRE: key is non-blank, value is valid JSON
	// POST: Exactly one setting row exists for key
	Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (domain.Setting, error)
}
