// Package analytics computes the dashboard summaries where the data lives.
package analytics

import (
	"context"
	"time"

	domain "aph/internal/domain/analytics"
)

// Store computes dashboard summaries.
type Store interface {
	// Payments summarizes payments whose payment date is within [from, to].
	// POST: AveragePayment is 0 when no payment matches
	Payments(ctx context.Context, from, to time.Time) (domain.PaymentSummary, error)
	// Users summarizes all users; "new" means created in now's calendar month.
	Users(ctx context.Context, now time.Time) (domain.UserSummary, error)
	// Programs summarizes programs and enrollments.
	Programs(ctx context.Context) (domain.ProgramSummary, error)
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RESTStore)(nil)
)
