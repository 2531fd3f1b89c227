package payment

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Field error messages shown next to the form inputs.
const (
	MsgCardNumber = "Valid card number is required"
	MsgExpiry     = "Valid expiry date is required (MM/YY)"
	MsgMonth      = "Invalid month"
	MsgCVV        = "Valid CVV is required"
	MsgCardHolder = "Cardholder name is required"
)

const (
	minCardDigits  = 15
	expiryPartSize = 2
)

// FieldErrors maps a form field name (cardNumber, expiry, cvv, cardHolder) to its message.
type FieldErrors map[string]string

func (f FieldErrors) OK() bool { return len(f) == 0 }

var messages = map[string]string{
	"cardNumber":   MsgCardNumber,
	"expiry":       MsgExpiry,
	"expiry.month": MsgMonth,
	"cvv":          MsgCVV,
	"cardHolder":   MsgCardHolder,
}

var validate = newValidator()

func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	mustRegister(v, "cardnumber", func(fl validatorv10.FieldLevel) bool {
		return len(stripSpace(fl.Field().String())) >= minCardDigits
	})
	mustRegister(v, "expiry", func(fl validatorv10.FieldLevel) bool {
		_, _, ok := splitExpiry(fl.Field().String())
		return ok
	})
	// Only the month is range-checked; the two year digits are accepted as typed.
	mustRegister(v, "month", func(fl validatorv10.FieldLevel) bool {
		mm, _, ok := splitExpiry(fl.Field().String())
		if !ok {
			return false
		}
		m, err := strconv.Atoi(mm)
		return err == nil && m >= 1 && m <= 12
	})
	mustRegister(v, "notblank", func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validatorv10.Validate, tag string, fn validatorv10.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func splitExpiry(s string) (month, year string, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || len(parts[0]) != expiryPartSize || len(parts[1]) != expiryPartSize {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Validate checks the shape of every field and returns one message per failing field.
func Validate(d Details) FieldErrors {
	out := FieldErrors{}
	err := validate.Struct(d)
	if err == nil {
		return out
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["form"] = err.Error()
		return out
	}
	for _, fe := range ve {
		key := fe.Field()
		msg, ok := messages[key+"."+fe.Tag()]
		if !ok {
			msg = messages[key]
		}
		out[key] = msg
	}
	return out
}
