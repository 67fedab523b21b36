package program_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"aph/internal/adapters/storage"
	store "aph/internal/adapters/storage/program"
	"aph/internal/adapters/storage/storagetest"
	"aph/internal/adapters/supabase/supabasetest"
	domain "aph/internal/domain/program"
)

func backends(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, store.NewSQLiteStore(storagetest.Open(t)))
	})
	t.Run("rest", func(t *testing.T) {
		fn(t, store.NewRESTStore(supabasetest.New(t).NewClient()))
	})
}

func newProgram(name string, max int, active bool) domain.NewProgram {
	return domain.NewProgram{
		Name: name, Description: "Skills and game play", Price: 299.99, AgeGroup: "U12",
		Duration: "12 weeks", MaxParticipants: max, IsActive: active,
	}
}

func TestStore_CreateGetRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		created, err := s.Create(ctx, newProgram("Elite Youth", 20, true))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := s.GetByID(ctx, created.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID = %v, %v", got, err)
		}
		if got.Name != "Elite Youth" || got.Price != 299.99 || got.MaxParticipants != 20 || !got.IsActive || got.AgeGroup != "U12" {
			t.Errorf("round trip = %+v", got)
		}
		missing, err := s.GetByID(ctx, "missing")
		if err != nil || missing != nil {
			t.Errorf("GetByID(missing) = %v, %v", missing, err)
		}
	})
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		n := newProgram("Bad", 1, true)
		n.CurrentParticipants = 2
		if _, err := s.Create(context.Background(), n); !errors.Is(err, domain.ErrOverCapacity) {
			t.Errorf("err = %v, want ErrOverCapacity", err)
		}
	})
}

func TestStore_ListActiveOnly(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		s.Create(ctx, newProgram("Open", 5, true))
		time.Sleep(2 * time.Millisecond)
		s.Create(ctx, newProgram("Closed", 5, false))

		all, err := s.List(ctx, store.ListFilter{})
		if err != nil || len(all) != 2 || all[0].Name != "Closed" {
			t.Fatalf("List(all) = %+v, %v", all, err)
		}
		active, err := s.List(ctx, store.ListFilter{ActiveOnly: true})
		if err != nil || len(active) != 1 || active[0].Name != "Open" {
			t.Fatalf("List(active) = %+v, %v", active, err)
		}
	})
}

func TestStore_UpdateKeepsInvariants(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		p, _ := s.Create(ctx, newProgram("Juniors", 3, true))
		if _, err := s.AdjustParticipants(ctx, p.ID, 2); err != nil {
			t.Fatalf("AdjustParticipants: %v", err)
		}

		shrink := 1
		if _, err := s.Update(ctx, p.ID, domain.Patch{MaxParticipants: &shrink}); !errors.Is(err, domain.ErrOverCapacity) {
			t.Errorf("shrinking below enrolled err = %v, want ErrOverCapacity", err)
		}

		price := 150.0
		updated, err := s.Update(ctx, p.ID, domain.Patch{Price: &price})
		if err != nil || updated.Price != 150 || updated.CurrentParticipants != 2 {
			t.Errorf("Update = %+v, %v", updated, err)
		}

		if _, err := s.Update(ctx, "missing", domain.Patch{Price: &price}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing err = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_AdjustParticipantsBounds(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		p, _ := s.Create(ctx, newProgram("Tiny", 1, true))

		got, err := s.AdjustParticipants(ctx, p.ID, 1)
		if err != nil || got.CurrentParticipants != 1 {
			t.Fatalf("first seat = %+v, %v", got, err)
		}
		if _, err := s.AdjustParticipants(ctx, p.ID, 1); !errors.Is(err, domain.ErrFull) {
			t.Errorf("over capacity err = %v, want ErrFull", err)
		}
		if _, err := s.AdjustParticipants(ctx, p.ID, -2); !errors.Is(err, domain.ErrNegativeEnrollment) {
			t.Errorf("below zero err = %v, want ErrNegativeEnrollment", err)
		}
		if _, err := s.AdjustParticipants(ctx, "missing", 1); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing err = %v, want ErrNotFound", err)
		}
		after, _ := s.GetByID(ctx, p.ID)
		if after.CurrentParticipants != 1 {
			t.Errorf("CurrentParticipants = %d after rejected changes, want 1", after.CurrentParticipants)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		p, _ := s.Create(ctx, newProgram("Gone", 1, true))
		if ok, err := s.Delete(ctx, p.ID); err != nil || !ok {
			t.Fatalf("Delete = %v, %v", ok, err)
		}
		if ok, _ := s.Delete(ctx, p.ID); ok {
			t.Error("second Delete should report false")
		}
	})
}
