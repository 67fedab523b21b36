package user_test

import (
	"strings"
	"testing"
	"time"

	"aph/internal/domain/user"
)

// TestUser_Validate tests validation of User.
func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    user.User
		wantErr error
	}{
		{
			name: "valid admin",
			user: user.User{ID: "1", Email: "admin@aph.academy", Name: "Admin", Role: user.RoleAdmin},
		},
		{
			name: "valid student",
			user: user.User{ID: "2", Email: "kid@aph.academy", Name: "Kid", Role: user.RoleStudent},
		},
		{
			name:    "empty email",
			user:    user.User{ID: "3", Role: user.RoleUser},
			wantErr: user.ErrEmptyEmail,
		},
		{
			name:    "email without at sign",
			user:    user.User{ID: "4", Email: "nope", Role: user.RoleUser},
			wantErr: user.ErrInvalidEmail,
		},
		{
			name:    "email too long",
			user:    user.User{ID: "5", Email: strings.Repeat("a", 250) + "@x.io", Role: user.RoleUser},
			wantErr: user.ErrEmailTooLong,
		},
		{
			name:    "unknown role",
			user:    user.User{ID: "6", Email: "a@b.c", Role: "member"},
			wantErr: user.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRole_SelfService(t *testing.T) {
	if user.RoleAdmin.SelfService() {
		t.Error("admin must not be self-service")
	}
	for _, r := range []user.Role{user.RoleUser, user.RoleCoach, user.RoleStudent} {
		if !r.SelfService() {
			t.Errorf("%s should be self-service", r)
		}
	}
}

func TestPatch_ApplyAndValidate(t *testing.T) {
	name := "Renamed"
	role := user.RoleCoach
	active := false
	login := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := user.Patch{Name: &name, Role: &role, IsActive: &active, LastLogin: &login}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	u := user.User{ID: "1", Email: "a@b.c", Name: "Old", Role: user.RoleUser, IsActive: true}
	p.Apply(&u)

	if u.Name != "Renamed" || u.Role != user.RoleCoach || u.IsActive {
		t.Errorf("unexpected user after patch: %+v", u)
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(login) {
		t.Errorf("LastLogin = %v, want %v", u.LastLogin, login)
	}
	if u.Email != "a@b.c" {
		t.Errorf("untouched field changed: %q", u.Email)
	}

	bad := user.Role("owner")
	if err := (&user.Patch{Role: &bad}).Validate(); err != user.ErrInvalidRole {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
	if !(&user.Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestAuthUser_Predicates(t *testing.T) {
	tests := []struct {
		role                                        user.Role
		admin, coach, student, adminPanel, database bool
	}{
		{user.RoleAdmin, true, false, false, true, true},
		{user.RoleCoach, false, true, false, false, true},
		{user.RoleStudent, false, false, true, false, false},
		{user.RoleUser, false, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			a := user.NewAuthUser(user.User{ID: "1", Email: "a@b.c", Role: tt.role})
			if a.IsAdmin() != tt.admin || a.IsCoach() != tt.coach || a.IsStudent() != tt.student {
				t.Errorf("role predicates wrong for %s", tt.role)
			}
			if a.CanAccessAdmin() != tt.adminPanel || a.CanViewDatabase() != tt.database {
				t.Errorf("access predicates wrong for %s", tt.role)
			}
		})
	}

	var anon *user.AuthUser
	if anon.IsAdmin() || anon.CanViewDatabase() {
		t.Error("nil AuthUser must not be privileged")
	}
}
