package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopfront/internal/payment"
)

type PaymentHandler struct{}

// POST /api/v1/payment/format
//
// Reformats the card form as the customer types. With ?validate=1 the field errors are
// included as well.
func (h *PaymentHandler) Format(c *fiber.Ctx) error {
	var d payment.Details
	if err := c.BodyParser(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment form"})
	}
	d = payment.Format(d)
	out := fiber.Map{
		"cardNumber": d.CardNumber,
		"expiry":     d.Expiry,
		"cvv":        d.CVV,
		"cardHolder": d.CardHolder,
	}
	if c.QueryBool("validate") {
		out["errors"] = payment.Validate(d)
	}
	return c.JSON(out)
}
