package orchestrators_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"aph/internal/adapters/backend"
	"aph/internal/adapters/email"
	"aph/internal/adapters/storage"
	"aph/internal/adapters/storage/storagetest"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/activity"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/user"
)

func adminActor(t *testing.T, s backend.Stores) orchestrators.Actor {
	t.Helper()
	u, err := s.Users.Create(context.Background(), user.NewUser{Email: "admin@aph.example", Role: user.RoleAdmin, IsActive: true})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return orchestrators.Actor{User: user.NewAuthUser(u), IPAddress: "10.0.0.7", UserAgent: "admin-ui"}
}

func TestUpdateSetting(t *testing.T) {
	s := backend.NewSQLite(storagetest.Open(t))
	ctx := context.Background()
	actor := adminActor(t, s)
	deps := orchestrators.UpdateSettingDeps{Settings: s.Settings, Activity: s.Activity}

	got, err := orchestrators.ExecuteUpdateSetting(ctx, actor, "registration_open", json.RawMessage(`true`), deps)
	if err != nil {
		t.Fatalf("ExecuteUpdateSetting: %v", err)
	}
	if got.UpdatedBy != actor.User.ID || string(got.Value) != "true" {
		t.Errorf("setting = %+v", got)
	}

	logs, err := s.Activity.ListByUser(ctx, actor.User.ID, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != activity.ActionSettingUpdated || logs[0].IPAddress != "10.0.0.7" {
		t.Errorf("activity = %+v", logs)
	}

	if _, err := orchestrators.ExecuteUpdateSetting(ctx, actor, "", json.RawMessage(`1`), deps); err == nil {
		t.Error("expected an error for an empty key")
	}
}

func TestChangeStatuses(t *testing.T) {
	s := backend.NewSQLite(storagetest.Open(t))
	ctx := context.Background()
	actor := adminActor(t, s)
	prog := seedProgram(t, s, 90, 3)
	res, err := orchestrators.ExecuteSubmitPayment(ctx, orchestrators.SubmitPaymentInput{Form: checkoutForm(prog.ID, "pat@example.com")}, paymentDeps(s))
	if err != nil {
		t.Fatalf("ExecuteSubmitPayment: %v", err)
	}

	payDeps := orchestrators.ChangePaymentStatusDeps{Payments: s.Payments, Activity: s.Activity}
	p, err := orchestrators.ExecuteChangePaymentStatus(ctx, actor, res.Payment.ID, payment.StatusRefunded, payDeps)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if p.Status != payment.StatusRefunded {
		t.Errorf("Status = %s", p.Status)
	}
	_, err = orchestrators.ExecuteChangePaymentStatus(ctx, actor, res.Payment.ID, payment.StatusCompleted, payDeps)
	var bad payment.ErrInvalidTransition
	if !errors.As(err, &bad) {
		t.Errorf("refunded→completed err = %v, want ErrInvalidTransition", err)
	}
	if _, err := orchestrators.ExecuteChangePaymentStatus(ctx, actor, "missing", payment.StatusFailed, payDeps); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing payment err = %v, want ErrNotFound", err)
	}

	time.Sleep(2 * time.Millisecond)
	enrDeps := orchestrators.ChangeEnrollmentStatusDeps{Enrollments: s.Enrollments, Activity: s.Activity}
	e, err := orchestrators.ExecuteChangeEnrollmentStatus(ctx, actor, res.Enrollment.ID, enrollment.StatusCancelled, enrDeps)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if e.Status != enrollment.StatusCancelled {
		t.Errorf("Status = %s", e.Status)
	}

	logs, err := s.Activity.ListByUser(ctx, actor.User.ID, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d admin activity entries, want 2", len(logs))
	}
	if logs[0].Action != activity.ActionEnrollmentChanged || logs[1].Action != activity.ActionPaymentStatusChanged {
		t.Errorf("actions = %s, %s", logs[0].Action, logs[1].Action)
	}
	if logs[1].Details["from"] != "completed" || logs[1].Details["to"] != "refunded" {
		t.Errorf("details = %v", logs[1].Details)
	}
}

type roleRecorder struct {
	userID string
	role   user.Role
}

func (r *roleRecorder) UpdateUserRole(_ context.Context, userID string, role user.Role) error {
	r.userID, r.role = userID, role
	return nil
}

func TestChangeUserRole_LogsEvenWhenActivityFails(t *testing.T) {
	rec := &roleRecorder{}
	actor := orchestrators.Actor{User: &user.AuthUser{ID: "admin-1", Role: user.RoleAdmin, IsAuthenticated: true}}
	err := orchestrators.ExecuteChangeUserRole(context.Background(), actor, "u-9", user.RoleCoach,
		orchestrators.ChangeUserRoleDeps{Roles: rec, Activity: failingLog{}})
	if err != nil {
		t.Fatalf("ExecuteChangeUserRole: %v", err)
	}
	if rec.userID != "u-9" || rec.role != user.RoleCoach {
		t.Errorf("recorded %+v", rec)
	}
}

func TestMailer_PasswordReset(t *testing.T) {
	sender := email.NewLogSender()
	m := &orchestrators.Mailer{Sender: sender, From: "APH <noreply@aph.example>", ResetURL: "https://aph.example/reset"}
	if err := m.SendPasswordReset(context.Background(), "sam@example.com", "tok en"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	msgs := sender.Sent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d", len(msgs))
	}
	if want := `href="https://aph.example/reset?token=tok+en"`; !strings.Contains(msgs[0].HTML, want) {
		t.Errorf("HTML %q missing %s", msgs[0].HTML, want)
	}
}
