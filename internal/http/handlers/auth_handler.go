package handlers

import (
	"time"

	"shopfront/internal/log"
	"shopfront/internal/services"
	"shopfront/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if u, err := h.Auth.CurrentUser(sessionID(c)); err == nil && u.IsAdmin() {
		return c.Redirect("/admin/orders")
	}
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, fields map[string]any) error {
	log.Security(c, "auth.login.fail", fields)
	c.Status(fiber.StatusUnauthorized)
	return render(c, "login", fiber.Map{"Err": "Invalid email or password"})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")
	if _, ok := validate.Email(email); !ok {
		return h.loginFailed(c, map[string]any{"reason": "bad_format"})
	}
	if !validate.Password(pass) {
		return h.loginFailed(c, map[string]any{"email": email, "reason": "bad_password_format"})
	}

	u, err := h.Auth.Login(sid, email, pass)
	if err != nil {
		return h.loginFailed(c, map[string]any{"email": email})
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email, "user_id": u.ID})
	return c.Redirect("/admin/orders")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := sessionID(c)
	if sid != "" {
		if err := h.Auth.Logout(sid); err != nil {
			log.Error(c, "auth.logout.fail", err, nil)
		}
	}
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}
