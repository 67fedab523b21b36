package forms

import (
	"strings"

	"aph/internal/domain/user"
)

// Signup is the registration form.
type Signup struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	Name            string `json:"name" validate:"required,max=120"`
	Phone           string `json:"phone"`
	Role            string `json:"role" validate:"omitempty,oneof=user coach student"`
}

var signupCopy = messages{
	"email":           "Please enter a valid email address",
	"password":        "Password must be at least 6 characters",
	"confirmPassword": "Passwords do not match",
	"name":            "Please enter your name",
	"role":            "Role must be one of: user, coach, student",
}

// Validate checks the form before any remote call is made.
func (f *Signup) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	f.Name = strings.TrimSpace(f.Name)
	return check(f, signupCopy)
}

// UserRole returns the chosen role, defaulting to user.
func (f *Signup) UserRole() user.Role {
	if f.Role == "" {
		return user.RoleUser
	}
	return user.Role(f.Role)
}

// Login is the sign-in form.
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var loginCopy = messages{
	"email":    "Please enter your email",
	"password": "Please enter your password",
}

// Validate checks that both fields are present.
func (f *Login) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f, loginCopy)
}

// ResetPassword is the forgotten-password form.
type ResetPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// Validate checks the email.
func (f *ResetPassword) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return check(f, messages{"email": "Please enter a valid email address"})
}
