package handlers

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	sessionCookie = "sid"
	flashCookie   = "flash"
)

// sessionID is the sid cookie copied out of the request buffer. The value outlives the
// request as a map key in the cart store, the session locks and the checkout registry.
func sessionID(c *fiber.Ctx) string {
	return utils.CopyString(c.Cookies(sessionCookie))
}

// ensureSID returns the browser's session id, issuing a new one when absent. The same
// id keys the cart and the login session.
func ensureSID(c *fiber.Ctx) string {
	sid := sessionID(c)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
		c.Request().Header.SetCookie(sessionCookie, sid)
	}
	return sid
}

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string `json:"k"` // success | error | info
	Title   string `json:"t"`
	Message string `json:"m,omitempty"`
}

func setFlash(c *fiber.Ctx, f Flash) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

// popFlash reads and expires the pending flash, if any.
func popFlash(c *fiber.Ctx) *Flash {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return nil
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var f Flash
	if json.Unmarshal(b, &f) != nil || f.Title == "" {
		return nil
	}
	return &f
}

// badge is the header cart count: empty for zero, "99+" above 99.
func badge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	}
	return strconv.Itoa(n)
}

// safeNext accepts only same-site relative paths as redirect targets.
func safeNext(next, fallback string) string {
	if len(next) < 1 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
