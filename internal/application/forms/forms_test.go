package forms_test

import (
	"errors"
	"testing"

	"aph/internal/application/forms"
	"aph/internal/domain/user"
)

func fieldErrors(t *testing.T, err error) forms.Errors {
	t.Helper()
	var fe forms.Errors
	if !errors.As(err, &fe) {
		t.Fatalf("expected forms.Errors, got %T (%v)", err, err)
	}
	return fe
}

func TestPayment_Valid(t *testing.T) {
	f := forms.Payment{
		CardNumber:     "4111 1111 1111 1111",
		ExpiryDate:     "1228",
		CVV:            "123",
		CardholderName: " Jane Doe ",
		Email:          "jane@example.com",
		Phone:          "5551234567",
		ProgramID:      "p1",
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if f.CardNumber != "4111111111111111" {
		t.Errorf("CardNumber = %q, want digits only", f.CardNumber)
	}
	if f.ExpiryDate != "12/28" {
		t.Errorf("ExpiryDate = %q, want 12/28", f.ExpiryDate)
	}
	if f.CardholderName != "Jane Doe" {
		t.Errorf("CardholderName = %q", f.CardholderName)
	}
}

func TestPayment_Messages(t *testing.T) {
	valid := func() forms.Payment {
		return forms.Payment{
			CardNumber: "4111111111111111", ExpiryDate: "12/28", CVV: "123",
			CardholderName: "Jane", Email: "jane@example.com", Phone: "5551234567", ProgramID: "p1",
		}
	}
	tests := []struct {
		name   string
		mutate func(*forms.Payment)
		field  string
		want   string
	}{
		{"short card", func(f *forms.Payment) { f.CardNumber = "4111 1111" }, "cardNumber", "Please enter a valid 16-digit card number"},
		{"bad month", func(f *forms.Payment) { f.ExpiryDate = "13/28" }, "expiryDate", "Please enter a valid expiry date (MM/YY)"},
		{"partial expiry", func(f *forms.Payment) { f.ExpiryDate = "1" }, "expiryDate", "Please enter a valid expiry date (MM/YY)"},
		{"short cvv", func(f *forms.Payment) { f.CVV = "12" }, "cvv", "Please enter a valid CVV"},
		{"no name", func(f *forms.Payment) { f.CardholderName = "  " }, "cardholderName", "Please enter the cardholder name"},
		{"bad email", func(f *forms.Payment) { f.Email = "jane" }, "email", "Please enter a valid email address"},
		{"short phone", func(f *forms.Payment) { f.Phone = "555" }, "phone", "Please enter a valid phone number"},
		{"punctuated short phone", func(f *forms.Payment) { f.Phone = "(55) 12-3-" }, "phone", "Please enter a valid phone number"},
		{"no program", func(f *forms.Payment) { f.ProgramID = "" }, "program", "Please select a program"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(&f)
			fe := fieldErrors(t, f.Validate())
			if len(fe) != 1 {
				t.Errorf("got %d errors %v, want 1", len(fe), fe)
			}
			if fe[tt.field] != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, fe[tt.field], tt.want)
			}
		})
	}
}

func TestPayment_CVVFourDigits(t *testing.T) {
	f := forms.Payment{
		CardNumber: "378282246310005 1", ExpiryDate: "01/30", CVV: "1234",
		CardholderName: "A", Email: "a@b.co", Phone: "+1 555 123 4567", ProgramID: "p",
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestPayment_NormalizeCapsLength(t *testing.T) {
	f := forms.Payment{
		CardNumber: "4111 1111 1111 1111 9", ExpiryDate: "01/30", CVV: "123",
		CardholderName: "A", Email: "a@b.co", Phone: "+64 (21) 123-4567 ext 890123", ProgramID: "p",
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if f.CardNumber != "4111111111111111" {
		t.Errorf("CardNumber = %q, want 16 digits", f.CardNumber)
	}
	if f.Phone != "642112345678901" {
		t.Errorf("Phone = %q, want 15 digits", f.Phone)
	}
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name  string
		form  forms.Signup
		field string
		want  string
	}{
		{"mismatch", forms.Signup{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2", Name: "A"}, "confirmPassword", "Passwords do not match"},
		{"short", forms.Signup{Email: "a@b.co", Password: "abc", ConfirmPassword: "abc", Name: "A"}, "password", "Password must be at least 6 characters"},
		{"admin role", forms.Signup{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1", Name: "A", Role: "admin"}, "role", "Role must be one of: user, coach, student"},
		{"no name", forms.Signup{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, "name", "Please enter your name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := fieldErrors(t, tt.form.Validate())
			if fe[tt.field] != tt.want {
				t.Errorf("%s = %q, want %q (all: %v)", tt.field, fe[tt.field], tt.want, fe)
			}
		})
	}
}

func TestSignup_DefaultRole(t *testing.T) {
	f := forms.Signup{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1", Name: "A"}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if f.UserRole() != user.RoleUser {
		t.Errorf("UserRole() = %q, want user", f.UserRole())
	}
	f.Role = "coach"
	if f.UserRole() != user.RoleCoach {
		t.Errorf("UserRole() = %q, want coach", f.UserRole())
	}
}

func TestLogin(t *testing.T) {
	f := forms.Login{Email: " "}
	fe := fieldErrors(t, f.Validate())
	if fe["email"] == "" || fe["password"] == "" {
		t.Errorf("expected both fields flagged, got %v", fe)
	}
}

func TestErrors_Error(t *testing.T) {
	err := forms.Errors{"b": "second", "a": "first"}
	if got := err.Error(); got != "invalid form: a: first; b: second" {
		t.Errorf("Error() = %q", got)
	}
}
