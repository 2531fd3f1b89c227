package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/checkout"
	"shopfront/internal/commerce"
	applog "shopfront/internal/log"
	"shopfront/internal/payment"
	"shopfront/internal/services"
	"shopfront/internal/validate"
)

const msgInFlight = "Your payment is already being processed"

type OrderHandler struct {
	Cart     *services.CartService
	Checkout *services.CheckoutService
	Order    *services.OrderService
}

func (h *OrderHandler) renderForm(c *fiber.Ctx, status int, d payment.Details, extra fiber.Map) error {
	cv, err := h.Cart.View(c.UserContext(), ensureSID(c))
	if err != nil {
		applog.Error(c, "checkout.load", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	d.CVV = "" // never echo the security code
	data := fiber.Map{"Cart": cv, "Form": d, "Fields": payment.FieldErrors{}}
	for k, v := range extra {
		data[k] = v
	}
	c.Status(status)
	return render(c, "checkout", data)
}

// GET /checkout
func (h *OrderHandler) CheckoutForm(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, payment.Details{}, nil)
}

// POST /checkout
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var d payment.Details
	if err := c.BodyParser(&d); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "payment"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid payment form")
	}

	res, err := h.Checkout.Submit(c.UserContext(), sid, d)
	switch {
	case errors.Is(err, checkout.ErrInFlight):
		applog.Security(c, "checkout.duplicate", nil)
		return h.renderForm(c, fiber.StatusConflict, payment.Format(d), fiber.Map{
			"Flash": &Flash{Kind: "info", Title: msgInFlight},
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		setFlash(c, Flash{Kind: "info", Title: "Your cart is empty"})
		return c.Redirect("/cart")
	case errors.Is(err, checkout.ErrInvalidPayment):
		return h.renderForm(c, fiber.StatusUnprocessableEntity, payment.Format(d), fiber.Map{"Fields": res.Fields})
	case errors.Is(err, services.ErrCartNotCleared):
		applog.Error(c, "checkout.cart.clear.fail", err, map[string]any{"order_id": res.OrderID})
	case err != nil:
		applog.Error(c, "checkout.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Something went wrong. Please try again."})
	}

	last4 := payment.Format(d).Payload().Last4()
	switch res.State {
	case checkout.Succeeded:
		applog.Audit(c, "checkout.paid", map[string]any{
			"order_id":   res.OrderID,
			"total":      res.Total.StringFixed(2),
			"card_last4": last4,
		})
		setFlash(c, Flash{Kind: "success", Title: "Payment Successful", Message: "Order " + res.OrderID + " has been placed."})
		return c.Redirect("/success/" + res.OrderID)
	case checkout.Failed:
		applog.Audit(c, "checkout.declined", map[string]any{
			"order_id":   res.OrderID,
			"card_last4": last4,
			"reason":     res.Message,
		})
		return h.renderForm(c, fiber.StatusPaymentRequired, payment.Format(d), fiber.Map{
			"Flash": &Flash{Kind: "error", Title: "Payment Failed", Message: res.Message},
		})
	default:
		applog.Error(c, "checkout.errored", res.Err, map[string]any{"card_last4": last4})
		return h.renderForm(c, upstreamStatus(res.Err), payment.Format(d), fiber.Map{
			"Flash": &Flash{Kind: "error", Title: "Payment Error", Message: res.Message},
		})
	}
}

// GET /success/:orderId
func (h *OrderHandler) Success(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("orderId"))
	if !ok {
		return notFound(c, "Order not found")
	}
	o, err := h.Order.Confirmation(c.UserContext(), oid)
	if commerce.IsNotFound(err) {
		return notFound(c, "Order not found")
	}
	if err != nil {
		applog.Error(c, "order.confirmation.fail", err, map[string]any{"order_id": oid})
		c.Status(upstreamStatus(err))
		return render(c, "success", fiber.Map{
			"OrderID": oid,
			"Err":     "Order details are unavailable right now.",
		})
	}
	return render(c, "success", fiber.Map{"OrderID": oid, "Order": o})
}
