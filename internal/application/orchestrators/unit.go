package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"aph/internal/adapters/backend"
)

// compensation undoes one completed step of a multi-step write.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// runAtomically runs steps as one unit. With a transaction function the
// steps share a transaction and compensations are ignored. Without one,
// each step registers its compensation through undo and a failure unwinds
// the registered compensations newest first.
// POST: On error, every completed step has been rolled back or compensated;
// compensation failures are joined to the returned error
func runAtomically(ctx context.Context, tx backend.TxFunc, op string, steps func(ctx context.Context, undo func(compensation)) error) error {
	if tx != nil {
		return tx(ctx, func(ctx context.Context) error {
			return steps(ctx, func(compensation) {})
		})
	}

	var done []compensation
	err := steps(ctx, func(c compensation) { done = append(done, c) })
	if err == nil {
		return nil
	}
	// Compensate even when the caller's context has been cancelled.
	cctx := context.WithoutCancel(ctx)
	errs := []error{err}
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if cerr := c.run(cctx); cerr != nil {
			slog.Error("saga_event", "event", "compensation_failed", "op", op, "step", c.name, "error", cerr)
			errs = append(errs, cerr)
			continue
		}
		slog.Info("saga_event", "event", "compensated", "op", op, "step", c.name)
	}
	return errors.Join(errs...)
}
