package storage

import (
	"context"
	"fmt"
)

type txKey struct{}

// WithTx runs fn inside one database transaction. Stores called with the
// context passed to fn run their statements on that transaction.
// PRE: db is valid; fn does not retain ctx after returning
// POST: All statements issued through Conn(ctx, ...) commit together or not at all
// INVARIANT: nested calls reuse the outer transaction
func WithTx(ctx context.Context, db SQLDB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(Querier); ok {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, Querier(tx))); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db SQLDB) Querier {
	if tx, ok := ctx.Value(txKey{}).(Querier); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(Querier)
	return ok
}
