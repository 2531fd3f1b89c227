package payment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shopfront/internal/payment"
)

func TestFormatCardNumber(t *testing.T) {
	cases := map[string]string{
		"4242424242424242":       "4242 4242 4242 4242",
		"4242-4242 4242x4242":    "4242 4242 4242 4242",
		"42424242424242429999":   "4242 4242 4242 4242",
		"4242":                   "4242",
		"42424":                  "4242 4",
		"":                       "",
		"abcd":                   "",
		"4242 4242 4242 4242 ":   "4242 4242 4242 4242",
		"378282246310005":        "3782 8224 6310 005",
	}
	for in, want := range cases {
		assert.Equal(t, want, payment.FormatCardNumber(in), "input %q", in)
	}
}

func TestFormatExpiry(t *testing.T) {
	cases := map[string]string{
		"1225":   "12/25",
		"12/25":  "12/25",
		"1":      "1",
		"12":     "12/",
		"122":    "12/2",
		"122599": "12/25",
		"ab":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, payment.FormatExpiry(in), "input %q", in)
	}
}

func TestFormatCVV(t *testing.T) {
	assert.Equal(t, "123", payment.FormatCVV("1a2b3"))
	assert.Equal(t, "1234", payment.FormatCVV("123456"))
	assert.Equal(t, "", payment.FormatCVV("abc"))
}

func valid() payment.Details {
	return payment.Details{
		CardNumber: "4242 4242 4242 4242",
		Expiry:     "12/25",
		CVV:        "123",
		CardHolder: "Jane Doe",
	}
}

func TestValidate_OK(t *testing.T) {
	errs := payment.Validate(valid())
	assert.True(t, errs.OK(), "%v", errs)
}

func TestValidate_FifteenDigitCardAccepted(t *testing.T) {
	d := valid()
	d.CardNumber = "3782 8224 6310 005"
	assert.True(t, payment.Validate(d).OK())
}

func TestValidate_FieldMessages(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*payment.Details)
		field string
		msg   string
	}{
		{"short card", func(d *payment.Details) { d.CardNumber = "4242 4242 4242" }, "cardNumber", payment.MsgCardNumber},
		{"empty card", func(d *payment.Details) { d.CardNumber = "" }, "cardNumber", payment.MsgCardNumber},
		{"expiry missing slash", func(d *payment.Details) { d.Expiry = "1225" }, "expiry", payment.MsgExpiry},
		{"expiry short year", func(d *payment.Details) { d.Expiry = "12/5" }, "expiry", payment.MsgExpiry},
		{"expiry month 13", func(d *payment.Details) { d.Expiry = "13/25" }, "expiry", payment.MsgMonth},
		{"expiry month 00", func(d *payment.Details) { d.Expiry = "00/25" }, "expiry", payment.MsgMonth},
		{"expiry month letters", func(d *payment.Details) { d.Expiry = "ab/25" }, "expiry", payment.MsgMonth},
		{"cvv two digits", func(d *payment.Details) { d.CVV = "12" }, "cvv", payment.MsgCVV},
		{"empty holder", func(d *payment.Details) { d.CardHolder = "" }, "cardHolder", payment.MsgCardHolder},
		{"blank holder", func(d *payment.Details) { d.CardHolder = " \t " }, "cardHolder", payment.MsgCardHolder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid()
			tc.edit(&d)
			errs := payment.Validate(d)
			assert.False(t, errs.OK())
			assert.Len(t, errs, 1)
			assert.Equal(t, tc.msg, errs[tc.field])
		})
	}
}

func TestValidate_CVVThreeDigitsPasses(t *testing.T) {
	d := valid()
	d.CVV = "123"
	assert.True(t, payment.Validate(d).OK())
	d.CVV = "1234"
	assert.True(t, payment.Validate(d).OK())
}

// The year is only checked for width; a past year still passes.
func TestValidate_YearNotRangeChecked(t *testing.T) {
	d := valid()
	d.Expiry = "01/00"
	assert.True(t, payment.Validate(d).OK())
}

func TestValidate_AllFieldsReported(t *testing.T) {
	errs := payment.Validate(payment.Details{})
	assert.Len(t, errs, 4)
}

func TestPayload(t *testing.T) {
	d := valid()
	d.CardHolder = "  Jane Doe "
	p := d.Payload()
	assert.Equal(t, "4242424242424242", p.CardNumber)
	assert.Equal(t, "Jane Doe", p.CardHolder)
	assert.Equal(t, "12/25", p.Expiry)
	assert.Equal(t, "4242", p.Last4())
}

func TestFormatThenValidate(t *testing.T) {
	d := payment.Format(payment.Details{
		CardNumber: "4242424242424242",
		Expiry:     "1225",
		CVV:        "123",
		CardHolder: "Jane",
	})
	assert.Equal(t, "4242 4242 4242 4242", d.CardNumber)
	assert.Equal(t, "12/25", d.Expiry)
	assert.True(t, payment.Validate(d).OK())
}
