package enrollment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"aph/internal/adapters/storage"
	store "aph/internal/adapters/storage/enrollment"
	paymentstore "aph/internal/adapters/storage/payment"
	programstore "aph/internal/adapters/storage/program"
	"aph/internal/adapters/storage/storagetest"
	userstore "aph/internal/adapters/storage/user"
	"aph/internal/adapters/supabase/supabasetest"
	domain "aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
	"aph/internal/domain/user"
)

type fixture struct {
	userID, programID, paymentID string
}

func backends(t *testing.T, fn func(t *testing.T, s store.Store, f fixture)) {
	t.Run("sqlite", func(t *testing.T) {
		db := storagetest.Open(t)
		ctx := context.Background()
		u, err := userstore.NewSQLiteStore(db).Create(ctx, user.NewUser{Email: "student@example.com", IsActive: true})
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
		p, err := programstore.NewSQLiteStore(db).Create(ctx, program.NewProgram{Name: "Elite", Price: 100, MaxParticipants: 10, IsActive: true})
		if err != nil {
			t.Fatalf("seed program: %v", err)
		}
		pay, err := paymentstore.NewSQLiteStore(db).Create(ctx, payment.NewPayment{
			UserID: u.ID, ProgramID: p.ID, Amount: 100, PaymentMethod: payment.MethodVisa,
			CardLastFour: "1111", Status: payment.StatusCompleted, TransactionID: "TXN_E",
		})
		if err != nil {
			t.Fatalf("seed payment: %v", err)
		}
		fn(t, store.NewSQLiteStore(db), fixture{u.ID, p.ID, pay.ID})
	})
	t.Run("rest", func(t *testing.T) {
		fn(t, store.NewRESTStore(supabasetest.New(t).NewClient()), fixture{"u-1", "p-1", "pay-1"})
	})
}

func TestStore_CreateForTerm(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store, f fixture) {
		ctx := context.Background()
		start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
		e, err := s.Create(ctx, domain.ForTerm(f.userID, f.programID, f.paymentID, start))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := s.GetByID(ctx, e.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID = %v, %v", got, err)
		}
		if got.Status != domain.StatusActive || !got.StartDate.Equal(start) || !got.EndDate.Equal(start.Add(domain.DefaultTerm)) {
			t.Errorf("round trip = %+v", got)
		}
	})
}

func TestStore_CreateRejectsEndBeforeStart(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store, f fixture) {
		n := domain.ForTerm(f.userID, f.programID, f.paymentID, time.Now())
		n.EndDate = n.StartDate.Add(-time.Hour)
		if _, err := s.Create(context.Background(), n); !errors.Is(err, domain.ErrEndBeforeStart) {
			t.Errorf("err = %v, want ErrEndBeforeStart", err)
		}
	})
}

func TestStore_ListByUser(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store, f fixture) {
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if _, err := s.Create(ctx, domain.ForTerm(f.userID, f.programID, f.paymentID, time.Now())); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		mine, err := s.ListByUser(ctx, f.userID)
		if err != nil || len(mine) != 2 {
			t.Errorf("ListByUser = %d, %v", len(mine), err)
		}
		all, err := s.List(ctx)
		if err != nil || len(all) != 2 {
			t.Errorf("List = %d, %v", len(all), err)
		}
	})
}

func TestStore_UpdateStatus(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store, f fixture) {
		ctx := context.Background()
		e, err := s.Create(ctx, domain.ForTerm(f.userID, f.programID, f.paymentID, time.Now()))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := s.UpdateStatus(ctx, e.ID, domain.StatusSuspended); err != nil {
			t.Fatalf("suspend: %v", err)
		}
		cancelled, err := s.UpdateStatus(ctx, e.ID, domain.StatusCancelled)
		if err != nil || cancelled.Status != domain.StatusCancelled {
			t.Fatalf("cancel = %+v, %v", cancelled, err)
		}
		var invalid domain.ErrInvalidTransition
		if _, err := s.UpdateStatus(ctx, e.ID, domain.StatusActive); !errors.As(err, &invalid) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
		if _, err := s.UpdateStatus(ctx, "missing", domain.StatusActive); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
