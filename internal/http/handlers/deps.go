package handlers

import (
	"shopfront/internal/cart"
	"shopfront/internal/commerce"
	"shopfront/internal/config"
	"shopfront/internal/repos"
	"shopfront/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth  *services.AuthService
	Carts *services.CartService

	AuthHandler      *AuthHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	PaymentHandler   *PaymentHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, store cart.Store, api *commerce.Client) *Deps {
	authSvc := &services.AuthService{Users: repos.NewUserRepo(db)}
	catalogSvc := services.NewCatalogService(api)
	invSvc := services.NewInventoryService(api)
	cartSvc := services.NewCartService(store, api, cfg.Pricing)
	checkoutSvc := services.NewCheckoutService(cartSvc, api)
	orderSvc := services.NewOrderService(api)

	return &Deps{
		Auth:             authSvc,
		Carts:            cartSvc,
		AuthHandler:      &AuthHandler{Auth: authSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc, Carts: cartSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		PaymentHandler:   &PaymentHandler{},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Cart: cartSvc, Checkout: checkoutSvc, Order: orderSvc},
		AdminHandler:     &AdminHandler{Orders: orderSvc},
	}
}
