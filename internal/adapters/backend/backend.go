// Package backend bundles the per-entity stores into the data access
// contract the application runs against.
package backend

import (
	"context"

	"aph/internal/adapters/storage"
	"aph/internal/adapters/storage/activity"
	"aph/internal/adapters/storage/analytics"
	"aph/internal/adapters/storage/enrollment"
	"aph/internal/adapters/storage/payment"
	"aph/internal/adapters/storage/program"
	"aph/internal/adapters/storage/settings"
	"aph/internal/adapters/storage/user"
	"aph/internal/adapters/supabase"
)

// TxFunc runs fn so that every store call made with the context passed to
// fn commits or rolls back together.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Stores is the full data access contract.
type Stores struct {
	Users       user.Store
	Programs    program.Store
	Payments    payment.Store
	Enrollments enrollment.Store
	Activity    activity.Store
	Settings    settings.Store
	Analytics   analytics.Store

	// Tx is nil when the backend cannot group writes atomically. Callers
	// then fall back to compensating actions.
	Tx TxFunc
}

// NewSQLite builds stores over a local database.
// PRE: db is migrated
func NewSQLite(db storage.SQLDB) Stores {
	return Stores{
		Users:       user.NewSQLiteStore(db),
		Programs:    program.NewSQLiteStore(db),
		Payments:    payment.NewSQLiteStore(db),
		Enrollments: enrollment.NewSQLiteStore(db),
		Activity:    activity.NewSQLiteStore(db),
		Settings:    settings.NewSQLiteStore(db),
		Analytics:   analytics.NewSQLiteStore(db),
		Tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return storage.WithTx(ctx, db, fn)
		},
	}
}

// NewSupabase builds stores over the hosted backend.
func NewSupabase(c *supabase.Client) Stores {
	return Stores{
		Users:       user.NewRESTStore(c),
		Programs:    program.NewRESTStore(c),
		Payments:    payment.NewRESTStore(c),
		Enrollments: enrollment.NewRESTStore(c),
		Activity:    activity.NewRESTStore(c),
		Settings:    settings.NewRESTStore(c),
		Analytics:   analytics.NewRESTStore(c),
	}
}
