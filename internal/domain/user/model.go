package user

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 120
)

// Role is the access level of a user.
type Role string

// Role constants
const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleCoach   Role = "coach"
	RoleStudent Role = "student"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleAdmin, RoleUser, RoleCoach, RoleStudent}

// SelfServiceRoles are the roles a visitor may pick when signing up.
var SelfServiceRoles = []Role{RoleUser, RoleCoach, RoleStudent}

// Domain errors
var (
	ErrEmptyEmail   = errors.New("email cannot be empty")
	ErrInvalidEmail = errors.New("email must contain '@'")
	ErrEmailTooLong = errors.New("email cannot exceed 254 characters")
	ErrNameTooLong  = errors.New("name cannot exceed 120 characters")
	ErrInvalidRole  = errors.New("role must be one of: admin, user, coach, student")
	ErrEmptyID      = errors.New("user id cannot be empty")
)

// User is a person known to the academy: a visitor who signed up, a
// student, a coach or an administrator.
type User struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time
}

// NewUser carries the caller-supplied fields of a user record. The store
// assigns CreatedAt and UpdatedAt; ID is optional and, when empty, generated.
type NewUser struct {
	ID       string
	Email    string
	Name     string
	Phone    string
	Role     Role
	IsActive bool
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Email     *string
	Name      *string
	Phone     *string
	Role      *Role
	IsActive  *bool
	LastLogin *time.Time
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	return validateFields(u.Email, u.Name, u.Role)
}

// Validate checks the fields of a user about to be created.
// PRE: NewUser struct is populated
// POST: Returns nil if valid, error otherwise
func (n *NewUser) Validate() error {
	return validateFields(n.Email, n.Name, n.Role)
}

// Validate checks only the fields that are being changed.
// PRE: none
// POST: Returns nil if every set field is valid
func (p *Patch) Validate() error {
	if p.Email != nil {
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.Name != nil && len(*p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.Role != nil && !p.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p *Patch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.Phone == nil && p.Role == nil && p.IsActive == nil && p.LastLogin == nil
}

// Apply copies every set field of the patch onto u.
// PRE: patch has been validated
// POST: u reflects the patch; UpdatedAt is not touched
func (p *Patch) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		u.LastLogin = &t
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// SelfService reports whether r may be chosen at signup.
func (r Role) SelfService() bool {
	for _, v := range SelfServiceRoles {
		if v == r {
			return true
		}
	}
	return false
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateFields(email, name string, role Role) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
