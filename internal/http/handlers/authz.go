package handlers

import (
	applog "shopfront/internal/log"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
)

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := sessionID(c)
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// CurrentUser attaches the logged-in user, if any, for templates and logs.
func CurrentUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := sessionID(c); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

// CartBadge loads the session's item count for the header on page requests.
func CartBadge(carts *services.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		sid := sessionID(c)
		if sid == "" {
			return c.Next()
		}
		n, err := carts.Count(c.UserContext(), sid)
		if err != nil {
			applog.Error(c, "cart.count.fail", err, nil)
			return c.Next()
		}
		c.Locals("CartCount", n)
		return c.Next()
	}
}
