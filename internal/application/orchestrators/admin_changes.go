package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"

	"aph/internal/domain/activity"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/settings"
	"aph/internal/domain/user"
)

// Actor is the signed-in administrator making a change, with the request
// details recorded in the activity trail.
type Actor struct {
	User      *user.AuthUser
	IPAddress string
	UserAgent string
}

func (a Actor) id() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

// record appends an activity entry. Admin changes are already committed
// when this runs, so a failure is logged rather than returned.
func record(ctx context.Context, log ActivityLogger, actor Actor, entry activity.NewLog) {
	entry = entry.WithRequest(actor.IPAddress, actor.UserAgent)
	if _, err := log.Log(ctx, entry); err != nil {
		slog.Warn("activity_event", "event", "activity_log_failed", "action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}

// --- Settings ---

// SettingsWriter defines the settings store interface needed by UpdateSetting.
type SettingsWriter interface {
	Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (settings.Setting, error)
}

// UpdateSettingDeps holds dependencies for UpdateSetting.
type UpdateSettingDeps struct {
	Settings SettingsWriter
	Activity ActivityLogger
}

// ExecuteUpdateSetting creates or replaces one admin setting.
// PRE: key is non-empty and value is valid JSON
// POST: The setting carries value and UpdatedBy is the actor
func ExecuteUpdateSetting(ctx context.Context, actor Actor, key string, value json.RawMessage, deps UpdateSettingDeps) (settings.Setting, error) {
	s, err := deps.Settings.Upsert(ctx, key, value, actor.id())
	if err != nil {
		return settings.Setting{}, err
	}
	record(ctx, deps.Activity, actor,
		activity.New(actor.id(), activity.ActionSettingUpdated, activity.EntityUser, actor.id()).
			WithDetail("key", s.Key).
			WithDetail("value", json.RawMessage(s.Value)))
	slog.Info("admin_event", "event", "setting_updated", "key", s.Key, "by", actor.id())
	return s, nil
}

// --- Payment status ---

// PaymentStatusStore defines the payment store interface needed by ChangePaymentStatus.
type PaymentStatusStore interface {
	GetByID(ctx context.Context, id string) (*payment.Payment, error)
	UpdateStatus(ctx context.Context, id string, status payment.Status) (payment.Payment, error)
}

// ChangePaymentStatusDeps holds dependencies for ChangePaymentStatus.
type ChangePaymentStatusDeps struct {
	Payments PaymentStatusStore
	Activity ActivityLogger
}

// ExecuteChangePaymentStatus moves a payment along its lifecycle.
// POST: Returns payment.ErrInvalidTransition for an illegal move and
// storage.ErrNotFound for an unknown id
func ExecuteChangePaymentStatus(ctx context.Context, actor Actor, id string, status payment.Status, deps ChangePaymentStatusDeps) (payment.Payment, error) {
	var from payment.Status
	if before, err := deps.Payments.GetByID(ctx, id); err == nil && before != nil {
		from = before.Status
	}
	p, err := deps.Payments.UpdateStatus(ctx, id, status)
	if err != nil {
		return payment.Payment{}, err
	}
	record(ctx, deps.Activity, actor,
		activity.New(actor.id(), activity.ActionPaymentStatusChanged, activity.EntityPayment, p.ID).
			WithDetail("from", string(from)).
			WithDetail("to", string(p.Status)))
	slog.Info("admin_event", "event", "payment_status_changed", "payment_id", p.ID, "status", p.Status)
	return p, nil
}

// --- Enrollment status ---

// EnrollmentStatusStore defines the enrollment store interface needed by ChangeEnrollmentStatus.
type EnrollmentStatusStore interface {
	UpdateStatus(ctx context.Context, id string, status enrollment.Status) (enrollment.Enrollment, error)
}

// ChangeEnrollmentStatusDeps holds dependencies for ChangeEnrollmentStatus.
type ChangeEnrollmentStatusDeps struct {
	Enrollments EnrollmentStatusStore
	Activity    ActivityLogger
}

// ExecuteChangeEnrollmentStatus moves an enrollment along its lifecycle.
func ExecuteChangeEnrollmentStatus(ctx context.Context, actor Actor, id string, status enrollment.Status, deps ChangeEnrollmentStatusDeps) (enrollment.Enrollment, error) {
	e, err := deps.Enrollments.UpdateStatus(ctx, id, status)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	record(ctx, deps.Activity, actor,
		activity.New(actor.id(), activity.ActionEnrollmentChanged, activity.EntityEnrollment, e.ID).
			WithDetail("to", string(e.Status)))
	slog.Info("admin_event", "event", "enrollment_status_changed", "enrollment_id", e.ID, "status", e.Status)
	return e, nil
}

// --- User role ---

// RoleUpdater changes a user's role.
type RoleUpdater interface {
	UpdateUserRole(ctx context.Context, userID string, role user.Role) error
}

// ChangeUserRoleDeps holds dependencies for ChangeUserRole.
type ChangeUserRoleDeps struct {
	Roles    RoleUpdater
	Activity ActivityLogger
}

// ExecuteChangeUserRole sets a user's role and records who did it.
func ExecuteChangeUserRole(ctx context.Context, actor Actor, userID string, role user.Role, deps ChangeUserRoleDeps) error {
	if err := deps.Roles.UpdateUserRole(ctx, userID, role); err != nil {
		return err
	}
	record(ctx, deps.Activity, actor,
		activity.New(actor.id(), activity.ActionRoleChanged, activity.EntityUser, userID).
			WithDetail("role", string(role)))
	return nil
}

// --- Sign-up ---

// ExecuteRecordSignUp records a new account in the activity trail,
// attributed to the account itself.
func ExecuteRecordSignUp(ctx context.Context, actor Actor, u user.User, log ActivityLogger) {
	record(ctx, log, actor,
		activity.New(u.ID, activity.ActionSignedUp, activity.EntityUser, u.ID).
			WithDetail("role", string(u.Role)))
}
