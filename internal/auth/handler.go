package auth

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/backend"
	"barberia-gateway/internal/resource"
)

// Handler owns the auth endpoints: login forwards credentials to the backend
// and turns the issued token into cookies; logout clears them; me describes
// the current session for the UI.
type Handler struct {
	backend  *backend.Client
	registry *resource.Registry
	cookie   CookieConfig
	xsrf     *XSRF
}

func NewHandler(b *backend.Client, reg *resource.Registry, cookie CookieConfig, xsrf *XSRF) *Handler {
	return &Handler{backend: b, registry: reg, cookie: cookie, xsrf: xsrf}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return unauthorized(c, "Email and password are required")
	}

	raw, err := h.backend.PostJSON(c.Context(), "/auth/login", fiber.Map{
		"email":    body.Email,
		"password": body.Password,
	}, "", "")
	if err != nil {
		return translateLoginError(c, err)
	}

	var issued struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &issued); err != nil || issued.Data.Token == "" {
		return badGateway(c, "Backend returned an unreadable login response")
	}

	sess := NewSession(issued.Data.Token)
	if sess == nil {
		// The backend handed out a token that does not decode or is
		// already expired. Never set a cookie the guard would bounce.
		return badGateway(c, "Backend returned an invalid token")
	}

	WriteAuthCookie(c, h.cookie, sess.Token)
	if err := h.xsrf.Issue(c, sess.Subject()); err != nil {
		log.Printf("WARN: issue xsrf token: %v", err)
	}

	return c.JSON(fiber.Map{"data": h.profile(sess)})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c *fiber.Ctx) error {
	sess := SessionFrom(c)
	if sess != nil {
		// Best effort; the cookies are gone either way.
		if _, err := h.backend.PostJSON(c.Context(), "/auth/logout", nil, sess.Token, sess.TenantID()); err != nil {
			log.Printf("WARN: backend logout: %v", err)
		}
	}
	ClearAuthCookie(c, h.cookie)
	h.xsrf.Clear(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *fiber.Ctx) error {
	sess := SessionFrom(c)
	if sess == nil {
		return unauthorized(c, "Authentication required")
	}
	return c.JSON(fiber.Map{"data": h.profile(sess)})
}

// profile is the session contract the UI renders gates from.
func (h *Handler) profile(sess *Session) fiber.Map {
	capabilities := make(fiber.Map)
	for _, res := range h.registry.All() {
		capabilities[res.Name] = sess.Capabilities(res.Permissions)
	}
	return fiber.Map{
		"subject":      sess.Subject(),
		"tenant_id":    sess.TenantID(),
		"roles":        sess.Claims.Roles,
		"permissions":  sess.Claims.Permissions,
		"full_access":  sess.Claims.HasFullAccess(),
		"capabilities": capabilities,
	}
}

// RegisterAuthRoutes registers auth routes on the given Fiber app. Login is
// public (credential-protected, and the XSRF cookie is issued there). Logout
// always clears cookies, even when the session token already expired, but an
// active session still has to present the XSRF header pair. Me requires a
// session.
func RegisterAuthRoutes(app *fiber.App, h *Handler) {
	grp := app.Group("/api/auth")
	grp.Post("/login", h.Login)
	grp.Post("/logout", OptionalSession(h.cookie), h.xsrf.Middleware(), h.Logout)
	grp.Get("/me", RequireSession(h.cookie), h.xsrf.Middleware(), h.Me)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{"code": "INVALID_PAYLOAD", "message": msg},
	})
}

func badGateway(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": fiber.Map{"code": "BAD_GATEWAY", "message": msg},
	})
}

func translateLoginError(c *fiber.Ctx, err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == fiber.StatusUnauthorized {
		msg := apiErr.Message
		if msg == "" {
			msg = "Invalid email or password"
		}
		return unauthorized(c, msg)
	}
	log.Printf("ERROR: backend login: %v", err)
	return badGateway(c, "Authentication service unavailable")
}
