package handlers

import (
	"errors"

	"shopfront/internal/cart"
	"shopfront/internal/log"
	"shopfront/internal/services"
	"shopfront/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	Cart *services.CartService
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	next := safeNext(c.FormValue("next"), "/cart")
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	v, err := h.Cart.Add(c.UserContext(), sid, productID)
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		setFlash(c, Flash{Kind: "error", Title: "Out of stock", Message: "This item is currently unavailable."})
	case errors.Is(err, services.ErrProductNotFound):
		setFlash(c, Flash{Kind: "error", Title: "Unavailable", Message: "This item is no longer available."})
	case err != nil:
		log.Error(c, "cart.add.fail", err, map[string]any{"product": productID})
		setFlash(c, Flash{Kind: "error", Title: "Cart not updated", Message: "We could not update your cart. Please try again."})
	default:
		log.Info(c, "cart.add", map[string]any{"product": productID, "items": v.Totals.ItemCount})
		setFlash(c, Flash{Kind: "success", Title: "Added to cart"})
	}
	return c.Redirect(next)
}

// POST /cart/update
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("productId"))
	qty, okQty := validate.Qty(c.FormValue("qty"))
	if !ok || !okQty {
		log.Security(c, "validation.fail", map[string]any{"field": "qty"})
		setFlash(c, Flash{Kind: "error", Title: "Invalid quantity"})
		return c.Redirect("/cart")
	}
	if _, err := h.Cart.Update(c.UserContext(), sid, productID, qty); err != nil {
		log.Error(c, "cart.update.fail", err, map[string]any{"product": productID, "qty": qty})
		setFlash(c, Flash{Kind: "error", Title: "Cart not updated", Message: "We could not update your cart. Please try again."})
	}
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		return c.Redirect("/cart")
	}
	if _, err := h.Cart.Remove(c.UserContext(), sid, productID); err != nil {
		log.Error(c, "cart.remove.fail", err, map[string]any{"product": productID})
		setFlash(c, Flash{Kind: "error", Title: "Cart not updated", Message: "We could not update your cart. Please try again."})
	}
	return c.Redirect("/cart")
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		log.Error(c, "cart.load.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	c.Locals("CartCount", cv.Totals.ItemCount)
	return render(c, "cart", fiber.Map{"Cart": cv})
}

type cartLineJSON struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	AtMax     bool   `json:"atMax"`
}

// GET /api/v1/cart
func (h *CartHandler) Summary(c *fiber.Ctx) error {
	sid := sessionID(c)
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		log.Error(c, "cart.load.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load cart"})
	}
	lines := make([]cartLineJSON, 0, len(cv.Items))
	for _, it := range cv.Items {
		lines = append(lines, cartLineJSON{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			Price:     it.Product.Price.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
			AtMax:     it.AtMax(),
		})
	}
	t := cv.Totals
	return c.JSON(fiber.Map{
		"count":           t.ItemCount,
		"badge":           badge(t.ItemCount),
		"items":           lines,
		"subtotal":        t.Subtotal.StringFixed(2),
		"shipping":        t.Shipping.StringFixed(2),
		"tax":             t.Tax.StringFixed(2),
		"total":           t.Total.StringFixed(2),
		"freeShippingGap": t.FreeShippingGap.StringFixed(2),
	})
}
