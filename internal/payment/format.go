// Package payment normalises raw card-form input and validates its shape. Nothing here
// talks to a payment processor.
package payment

import (
	"strings"

	"shopfront/internal/domain"
)

// Details is the card form as typed by the customer. Never log or persist it.
type Details struct {
	CardNumber string `json:"cardNumber" form:"cardNumber" validate:"cardnumber"`
	Expiry     string `json:"expiry" form:"expiry" validate:"expiry,month"`
	CVV        string `json:"cvv" form:"cvv" validate:"min=3"`
	CardHolder string `json:"cardHolder" form:"cardHolder" validate:"notblank"`
}

const (
	maxCardDigits   = 16
	maxExpiryDigits = 4
	maxCVVDigits    = 4
)

func digits(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			if b.Len() == limit {
				break
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber keeps up to 16 digits grouped in fours: "4242 4242 4242 4242".
func FormatCardNumber(raw string) string {
	d := digits(raw, maxCardDigits)
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry keeps up to 4 digits and inserts "/" once two are present.
func FormatExpiry(raw string) string {
	d := digits(raw, maxExpiryDigits)
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

func FormatCVV(raw string) string {
	return digits(raw, maxCVVDigits)
}

// Format applies the per-field formatters. The cardholder name is left as typed.
func Format(d Details) Details {
	return Details{
		CardNumber: FormatCardNumber(d.CardNumber),
		Expiry:     FormatExpiry(d.Expiry),
		CVV:        FormatCVV(d.CVV),
		CardHolder: d.CardHolder,
	}
}

// Payload is what the order service receives: card digits without spaces and a
// trimmed cardholder name.
func (d Details) Payload() domain.PaymentPayload {
	return domain.PaymentPayload{
		CardNumber: stripSpace(d.CardNumber),
		Expiry:     d.Expiry,
		CVV:        d.CVV,
		CardHolder: strings.TrimSpace(d.CardHolder),
	}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
