package forms

import (
	"strings"

	"aph/internal/domain/payment"
)

// maxPhoneDigits is the longest international number (E.164).
const maxPhoneDigits = 15

// Payment is the checkout form.
type Payment struct {
	CardNumber     string `json:"cardNumber" validate:"required,len=16,numeric"`
	ExpiryDate     string `json:"expiryDate" validate:"required,expiry"`
	CVV            string `json:"cvv" validate:"required,min=3,max=4,numeric"`
	CardholderName string `json:"cardholderName" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,min=10,numeric"`
	ProgramID      string `json:"program" validate:"required"`
}

var paymentCopy = messages{
	"cardNumber":     "Please enter a valid 16-digit card number",
	"expiryDate":     "Please enter a valid expiry date (MM/YY)",
	"cvv":            "Please enter a valid CVV",
	"cardholderName": "Please enter the cardholder name",
	"email":          "Please enter a valid email address",
	"phone":          "Please enter a valid phone number",
	"program":        "Please select a program",
}

// Normalize applies the input masks. Card number, CVV and phone keep
// digits only, the card number and phone capped at their longest length.
// The expiry date becomes MM/YY.
func (f *Payment) Normalize() {
	f.CardNumber = payment.Digits(payment.FormatCardNumber(f.CardNumber))
	f.ExpiryDate = payment.FormatExpiryDate(f.ExpiryDate)
	f.CVV = payment.Digits(f.CVV)
	f.CardholderName = strings.TrimSpace(f.CardholderName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = payment.Digits(f.Phone)
	if len(f.Phone) > maxPhoneDigits {
		f.Phone = f.Phone[:maxPhoneDigits]
	}
	f.ProgramID = strings.TrimSpace(f.ProgramID)
}

// Validate normalizes and checks the form.
func (f *Payment) Validate() error {
	f.Normalize()
	return check(f, paymentCopy)
}
