package payment

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Card type labels shown to the payer.
const (
	CardVisa       = "Visa"
	CardMastercard = "Mastercard"
	CardAmex       = "American Express"
	CardGeneric    = "Credit Card"
)

// CardType classifies a card number by its leading digit.
func CardType(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	switch {
	case strings.HasPrefix(n, "4"):
		return CardVisa
	case strings.HasPrefix(n, "5"):
		return CardMastercard
	case strings.HasPrefix(n, "3"):
		return CardAmex
	default:
		return CardGeneric
	}
}

// MethodForCardType maps a card type label to the stored payment method.
func MethodForCardType(cardType string) Method {
	switch cardType {
	case CardVisa:
		return MethodVisa
	case CardMastercard:
		return MethodMastercard
	case CardAmex:
		return MethodAmex
	default:
		return MethodCreditCard
	}
}

// LastFour returns the last four digits of a card number.
// Returns the digits available when fewer than four are present.
func LastFour(number string) string {
	d := Digits(number)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber groups the first 16 digits in blocks of four.
func FormatCardNumber(value string) string {
	d := Digits(value)
	if len(d) > 16 {
		d = d[:16]
	}
	var parts []string
	for i := 0; i < len(d); i += 4 {
		end := i + 4
		if end > len(d) {
			end = len(d)
		}
		parts = append(parts, d[i:end])
	}
	return strings.Join(parts, " ")
}

// FormatExpiryDate renders up to four digits as MM/YY.
func FormatExpiryDate(value string) string {
	d := Digits(value)
	if len(d) > 4 {
		d = d[:4]
	}
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewTransactionID fabricates a transaction reference of the form
// TXN_<unix millis>_<9 base36 chars>. No gateway is involved.
func NewTransactionID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), suffix)
}
