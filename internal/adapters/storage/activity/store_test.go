package activity_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	store "aph/internal/adapters/storage/activity"
	"aph/internal/adapters/storage/storagetest"
	"aph/internal/adapters/supabase/supabasetest"
	domain "aph/internal/domain/activity"
)

func backends(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, store.NewSQLiteStore(storagetest.Open(t)))
	})
	t.Run("rest", func(t *testing.T) {
		fn(t, store.NewRESTStore(supabasetest.New(t).NewClient()))
	})
}

func TestStore_LogRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		entry := domain.New("u1", domain.ActionPaymentCompleted, domain.EntityPayment, "pay1").
			WithDetail("amount", 299.99).
			WithDetail("program_name", "Elite Youth").
			WithRequest("", "Mozilla/5.0")
		logged, err := s.Log(ctx, entry)
		if err != nil {
			t.Fatalf("Log: %v", err)
		}
		if logged.ID == "" || logged.CreatedAt.IsZero() {
			t.Errorf("identity not assigned: %+v", logged)
		}

		logs, err := s.List(ctx, 0, 0)
		if err != nil || len(logs) != 1 {
			t.Fatalf("List = %d, %v", len(logs), err)
		}
		got := logs[0]
		if got.IPAddress != domain.UnknownIP || got.UserAgent != "Mozilla/5.0" || got.EntityType != domain.EntityPayment {
			t.Errorf("round trip = %+v", got)
		}
		if got.Details["amount"] != 299.99 || got.Details["program_name"] != "Elite Youth" {
			t.Errorf("details = %v", got.Details)
		}
	})
}

func TestStore_LogRejectsInvalid(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		_, err := s.Log(context.Background(), domain.New("u1", "", domain.EntityUser, "u1"))
		if err != domain.ErrEmptyAction {
			t.Errorf("err = %v, want ErrEmptyAction", err)
		}
	})
}

func TestStore_ListPaging(t *testing.T) {
	backends(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			user := "u1"
			if i%2 == 1 {
				user = "u2"
			}
			if _, err := s.Log(ctx, domain.New(user, fmt.Sprintf("action_%d", i), domain.EntityUser, user)); err != nil {
				t.Fatalf("Log: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}

		first, err := s.List(ctx, 2, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(first) != 2 || first[0].Action != "action_4" || first[1].Action != "action_3" {
			t.Errorf("first page = %v", actions(first))
		}
		second, err := s.List(ctx, 2, 2)
		if err != nil || len(second) != 2 || second[0].Action != "action_2" {
			t.Errorf("second page = %v, %v", actions(second), err)
		}

		mine, err := s.ListByUser(ctx, "u2", 0)
		if err != nil || len(mine) != 2 || mine[0].Action != "action_3" {
			t.Errorf("ListByUser = %v, %v", actions(mine), err)
		}
	})
}

func actions(logs []domain.Log) []string {
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}
