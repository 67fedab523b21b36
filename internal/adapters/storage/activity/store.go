package activity

import (
	"context"

	domain "aph/internal/domain/activity"
)

// DefaultLimit is used when List is called with a non-positive limit.
const DefaultLimit = 100

// Store defines the interface for activity log persistence. Entries are
// append-only.
type Store interface {
	// Log appends an entry.
	// PRE: entry passes Validate
	// POST: Returns the entry with ID and CreatedAt assigned
	Log(ctx context.Context, entry domain.NewLog) (domain.Log, error)

	// List returns one page of entries, newest first.
	// PRE: offset >= 0
	List(ctx context.Context, limit, offset int) ([]domain.Log, error)

	// ListByUser returns a user's entries, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Log, error)
}

// Ensure implementations satisfy Store.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RESTStore)(nil)
)

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
