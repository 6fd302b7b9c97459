package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieConfig describes the auth cookie. The cookie value is the compact
// token string verbatim — both the page guard and handlers read it directly.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// WriteAuthCookie sets the auth cookie on the response.
func WriteAuthCookie(c *fiber.Ctx, cfg CookieConfig, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.TTL),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ReadAuthCookie returns the raw token from the request, or "".
func ReadAuthCookie(c *fiber.Ctx, cfg CookieConfig) string {
	return c.Cookies(cfg.Name)
}

// ClearAuthCookie expires the auth cookie. Used at logout and when the guard
// detects an expired token.
func ClearAuthCookie(c *fiber.Ctx, cfg CookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
