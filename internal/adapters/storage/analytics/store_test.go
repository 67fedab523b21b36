package analytics_test

import (
	"context"
	"testing"
	"time"

	"aph/internal/adapters/backend"
	"aph/internal/adapters/storage/storagetest"
	"aph/internal/adapters/supabase/supabasetest"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
	"aph/internal/domain/user"
)

func backends(t *testing.T, fn func(t *testing.T, s backend.Stores)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, backend.NewSQLite(storagetest.Open(t)))
	})
	t.Run("rest", func(t *testing.T) {
		fn(t, backend.NewSupabase(supabasetest.New(t).NewClient()))
	})
}

func TestStore_EmptyIsZero(t *testing.T) {
	backends(t, func(t *testing.T, s backend.Stores) {
		ctx := context.Background()
		now := time.Now()
		p, err := s.Analytics.Payments(ctx, now.AddDate(-1, 0, 0), now)
		if err != nil {
			t.Fatalf("Payments: %v", err)
		}
		if p.TotalRevenue != 0 || p.TotalPayments != 0 || p.AveragePayment != 0 || len(p.PaymentsByStatus) != 0 {
			t.Errorf("payments = %+v", p)
		}
		u, err := s.Analytics.Users(ctx, now)
		if err != nil || u.TotalUsers != 0 || u.UsersByRole == nil {
			t.Errorf("users = %+v, %v", u, err)
		}
		pr, err := s.Analytics.Programs(ctx)
		if err != nil || pr.TotalPrograms != 0 || pr.EnrollmentsByProgram == nil {
			t.Errorf("programs = %+v, %v", pr, err)
		}
	})
}

func TestStore_Summaries(t *testing.T) {
	backends(t, func(t *testing.T, s backend.Stores) {
		ctx := context.Background()
		now := time.Now().UTC()

		alice, err := s.Users.Create(ctx, user.NewUser{Email: "alice@example.com", Role: user.RoleStudent, IsActive: true})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if _, err := s.Users.Create(ctx, user.NewUser{Email: "coach@example.com", Role: user.RoleCoach}); err != nil {
			t.Fatalf("create user: %v", err)
		}
		elite, err := s.Programs.Create(ctx, program.NewProgram{Name: "Elite", Price: 300, MaxParticipants: 10, IsActive: true})
		if err != nil {
			t.Fatalf("create program: %v", err)
		}
		if _, err := s.Programs.Create(ctx, program.NewProgram{Name: "Legacy", Price: 50, MaxParticipants: 5}); err != nil {
			t.Fatalf("create program: %v", err)
		}

		pay := func(tx string, amount float64, status payment.Status, at time.Time) payment.Payment {
			t.Helper()
			p, err := s.Payments.Create(ctx, payment.NewPayment{
				UserID: alice.ID, ProgramID: elite.ID, Amount: amount, PaymentMethod: payment.MethodVisa,
				CardLastFour: "1111", Status: status, TransactionID: tx, PaymentDate: at,
			})
			if err != nil {
				t.Fatalf("create payment: %v", err)
			}
			return p
		}
		p1 := pay("TXN_1", 300, payment.StatusCompleted, now.Add(-time.Hour))
		pay("TXN_2", 100, payment.StatusPending, now.Add(-2*time.Hour))
		pay("TXN_OLD", 999, payment.StatusCompleted, now.AddDate(0, -2, 0))
		if _, err := s.Enrollments.Create(ctx, enrollment.ForTerm(alice.ID, elite.ID, p1.ID, now)); err != nil {
			t.Fatalf("create enrollment: %v", err)
		}

		ps, err := s.Analytics.Payments(ctx, now.AddDate(0, 0, -7), now)
		if err != nil {
			t.Fatalf("Payments: %v", err)
		}
		if ps.TotalPayments != 2 || ps.TotalRevenue != 400 || ps.AveragePayment != 200 {
			t.Errorf("payments = %+v", ps)
		}
		if ps.PaymentsByStatus["completed"] != 1 || ps.PaymentsByStatus["pending"] != 1 {
			t.Errorf("by status = %v", ps.PaymentsByStatus)
		}

		us, err := s.Analytics.Users(ctx, now)
		if err != nil {
			t.Fatalf("Users: %v", err)
		}
		if us.TotalUsers != 2 || us.ActiveUsers != 1 || us.NewUsersThisMonth != 2 || us.UsersByRole["coach"] != 1 {
			t.Errorf("users = %+v", us)
		}
		next, err := s.Analytics.Users(ctx, now.AddDate(0, 2, 0))
		if err != nil || next.NewUsersThisMonth != 0 {
			t.Errorf("users two months later = %+v, %v", next, err)
		}

		pr, err := s.Analytics.Programs(ctx)
		if err != nil {
			t.Fatalf("Programs: %v", err)
		}
		if pr.TotalPrograms != 2 || pr.ActivePrograms != 1 || pr.TotalEnrollments != 1 || pr.EnrollmentsByProgram[elite.ID] != 1 {
			t.Errorf("programs = %+v", pr)
		}
	})
}
