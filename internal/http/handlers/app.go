package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "shopfront/internal/log"
)

// AppOptions are the parts of the server that differ between production and tests.
type AppOptions struct {
	TemplateDir string
	StaticDir   string
	// ReloadTemplates re-parses templates on every render (development only).
	ReloadTemplates bool
	// AccessLog enables the per-request access line.
	AccessLog bool
}

// NewApp builds the storefront: middleware stack, static assets and every route.
func NewApp(opts AppOptions, d *Deps) *fiber.App {
	engine := html.New(opts.TemplateDir, ".html")
	engine.Reload(opts.ReloadTemplates)

	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 1 << 20, // 1 MiB
		// Params, cookies and form values stay valid after the handler returns.
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Something went wrong. Please try again."
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < 500 {
				code = fe.Code
				msg = "We could not process that request."
				if code == fiber.StatusNotFound {
					msg = "Page not found"
				}
			}
			applog.Error(c, "server.error", err, map[string]any{"code": code})
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
				return c.Status(code).SendString(msg)
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("started", time.Now())
		return c.Next()
	})
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(CurrentUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests. Please slow down.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(CartBadge(d.Carts))

	// ---------- Static assets ----------
	if opts.StaticDir != "" {
		app.Static("/static", opts.StaticDir)
	}

	// ---------- Storefront ----------
	app.Get("/", d.ProductHandler.Home)
	app.Get("/product/:id", d.ProductHandler.Detail)

	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Post("/cart/update", d.CartHandler.Update)
	app.Post("/cart/remove", d.CartHandler.Remove)

	app.Get("/checkout", d.OrderHandler.CheckoutForm)
	app.Post("/checkout", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.checkout.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many payment attempts. Please wait a minute and try again."})
		},
	}), d.OrderHandler.Place)
	app.Get("/success/:orderId", d.OrderHandler.Success)

	// ---------- API ----------
	api := app.Group("/api/v1")
	api.Get("/cart", d.CartHandler.Summary)
	api.Post("/payment/format", d.PaymentHandler.Format)
	api.Get("/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), d.InventoryHandler.Check)

	// ---------- Auth (login throttled) ----------
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	// ---------- Admin ----------
	admin := app.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/admin/orders") })
	admin.Get("/orders", d.AdminHandler.OrdersPage)
	admin.Get("/orders/:id", d.AdminHandler.OrderDetail)
	admin.Post("/orders/:id/refund", d.AdminHandler.Refund)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}
