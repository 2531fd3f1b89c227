package handlers

import (
	"errors"

	"shopfront/internal/commerce"
	"shopfront/internal/domain"
	"shopfront/internal/log"
	"shopfront/internal/services"
	"shopfront/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	Carts   *services.CartService
}

// productCard is one tile of the product grid.
type productCard struct {
	P          domain.Product
	InCart     int
	AtMax      bool
	OutOfStock bool
}

func (h *ProductHandler) cartQuantities(c *fiber.Ctx) map[string]int {
	sid := sessionID(c)
	if sid == "" {
		return nil
	}
	v, err := h.Carts.View(c.UserContext(), sid)
	if err != nil {
		log.Error(c, "cart.load.fail", err, nil)
		return nil
	}
	return v.Quantities()
}

func card(p domain.Product, inCart int) productCard {
	return productCard{
		P:          p,
		InCart:     inCart,
		AtMax:      inCart > 0 && inCart >= p.Stock,
		OutOfStock: p.Stock <= 0,
	}
}

// GET /
func (h *ProductHandler) Home(c *fiber.Ctx) error {
	products, err := h.Catalog.ListProducts(c.UserContext())
	if err != nil {
		log.Error(c, "products.list.fail", err, nil)
		c.Status(upstreamStatus(err))
		return render(c, "products", fiber.Map{"Err": "Failed to load products. Please try again."})
	}
	qty := h.cartQuantities(c)
	cards := make([]productCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, card(p, qty[p.ID]))
	}
	return render(c, "products", fiber.Map{"Products": cards})
}

// GET /product/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if errors.Is(err, services.ErrProductNotFound) {
		return notFound(c, "This item is no longer available")
	}
	if err != nil {
		log.Error(c, "product.get.fail", err, map[string]any{"product": id})
		return c.Status(upstreamStatus(err)).Render("notfound", fiber.Map{"Message": "Could not load this product. Please try again."})
	}
	return render(c, "product", fiber.Map{
		"Card":  card(p, h.cartQuantities(c)[p.ID]),
		"Avail": services.Availability(p.Stock),
	})
}

// upstreamStatus maps a commerce API failure to the status we answer with.
func upstreamStatus(err error) int {
	if errors.Is(err, commerce.ErrUnavailable) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusBadGateway
}
