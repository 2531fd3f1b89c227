package handlers

import (
	"errors"

	"shopfront/internal/commerce"
	applog "shopfront/internal/log"
	"shopfront/internal/services"
	"shopfront/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Orders *services.OrderService
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		c.Status(upstreamStatus(err))
		return render(c, "admin_orders", fiber.Map{"Err": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords})
}

// GET /admin/orders/:id
func (h *AdminHandler) OrderDetail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Order not found")
	}
	o, err := h.Orders.Detail(c.UserContext(), id)
	if commerce.IsNotFound(err) {
		return notFound(c, "Order not found")
	}
	if err != nil {
		applog.Error(c, "admin.orders.get.fail", err, map[string]any{"order_id": id})
		return c.Status(upstreamStatus(err)).Render("notfound", fiber.Map{"Message": "Could not load order"})
	}
	return render(c, "admin_order", fiber.Map{"Order": o})
}

// POST /admin/orders/:id/refund
func (h *AdminHandler) Refund(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	back := "/admin/orders/" + id
	o, err := h.Orders.Refund(c.UserContext(), id)
	switch {
	case errors.Is(err, services.ErrNotRefundable):
		applog.Security(c, "admin.orders.refund.denied", map[string]any{"order_id": id, "status": string(o.Status)})
		setFlash(c, Flash{Kind: "error", Title: "Refund failed", Message: "Only paid orders can be refunded."})
	case commerce.IsNotFound(err):
		return notFound(c, "Order not found")
	case err != nil:
		applog.Error(c, "admin.orders.refund.fail", err, map[string]any{"order_id": id})
		msg := "Please try again."
		var apiErr *commerce.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "" {
			msg = apiErr.Message
		}
		setFlash(c, Flash{Kind: "error", Title: "Refund failed", Message: msg})
	default:
		applog.Audit(c, "admin.orders.refund", map[string]any{"order_id": id, "total": o.Total.StringFixed(2)})
		setFlash(c, Flash{Kind: "success", Title: "Order refunded", Message: "Order " + o.ShortID() + " has been refunded."})
	}
	return c.Redirect(back)
}
