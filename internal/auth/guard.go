package auth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"barberia-gateway/internal/audit"
	"barberia-gateway/internal/resource"
)

// Guard evaluates page navigations against the auth cookie and the declared
// route→permission table. Every failure resolves to a redirect; nothing
// blocks, nothing retries.
type Guard struct {
	registry    *resource.Registry
	cookie      CookieConfig
	loginPath   string
	landingPath string
	publicPaths []string
	trail       audit.Recorder
}

func NewGuard(reg *resource.Registry, cookie CookieConfig, loginPath, landingPath string, publicPaths []string, trail audit.Recorder) *Guard {
	if trail == nil {
		trail = audit.Noop{}
	}
	return &Guard{
		registry:    reg,
		cookie:      cookie,
		loginPath:   loginPath,
		landingPath: landingPath,
		publicPaths: publicPaths,
		trail:       trail,
	}
}

// Pages returns the navigation middleware. API routes carry their own
// middlewares with status semantics and are skipped here.
func (g *Guard) Pages() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if strings.HasPrefix(path, "/api/") || path == "/api" {
			return c.Next()
		}

		token := ReadAuthCookie(c, g.cookie)
		claims := DecodeToken(token)
		authenticated := claims != nil && !claims.Expired()

		// An authenticated user has no business on the login page.
		if path == g.loginPath {
			if authenticated {
				g.record(c, claims.Subject, "already_authenticated", audit.OutcomeRedirect)
				return c.Redirect(g.landingPath, fiber.StatusFound)
			}
			return c.Next()
		}

		if g.isPublic(path) {
			return c.Next()
		}

		if token == "" {
			g.record(c, "", "no_token", audit.OutcomeRedirect)
			return g.redirectToLogin(c)
		}

		if !authenticated {
			// Malformed or expired: discard the cookie with the redirect.
			ClearAuthCookie(c, g.cookie)
			g.record(c, "", "expired", audit.OutcomeRedirect)
			return g.redirectToLogin(c)
		}

		required, declared := g.registry.RequiredPermissions(path)
		if !declared || len(required) == 0 {
			// Authenticated-only path.
			setSession(c, &Session{Token: token, Claims: claims})
			g.record(c, claims.Subject, "authenticated", audit.OutcomeAllow)
			return c.Next()
		}

		if !claims.HasAny(required) {
			g.record(c, claims.Subject, "permission", audit.OutcomeRedirect)
			return c.Redirect(g.landingPath, fiber.StatusFound)
		}

		setSession(c, &Session{Token: token, Claims: claims})
		g.record(c, claims.Subject, "permission", audit.OutcomeAllow)
		return c.Next()
	}
}

func (g *Guard) isPublic(path string) bool {
	for _, p := range g.publicPaths {
		if path == p {
			return true
		}
		// "/" as a prefix would make everything public.
		if p != "/" && strings.HasPrefix(path, p) {
			if len(path) == len(p) || path[len(p)] == '/' {
				return true
			}
		}
	}
	return false
}

func (g *Guard) redirectToLogin(c *fiber.Ctx) error {
	target := g.loginPath + "?redirect=" + url.QueryEscape(c.OriginalURL())
	return c.Redirect(target, fiber.StatusFound)
}

func (g *Guard) record(c *fiber.Ctx, subject, rule, outcome string) {
	g.trail.Record(audit.Decision{
		Source:  "guard",
		Subject: subject,
		Path:    c.Path(),
		Rule:    rule,
		Outcome: outcome,
	})
}

// RequireSession is the API-side companion middleware: it builds the Session
// from the cookie and rejects missing, malformed or expired tokens with 401.
func RequireSession(cookie CookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := NewSession(ReadAuthCookie(c, cookie))
		if sess == nil {
			return unauthorized(c, "Authentication required")
		}
		setSession(c, sess)
		return c.Next()
	}
}

// OptionalSession builds the Session when the cookie holds a live token but
// never rejects. Logout uses it so a stale browser can still shed cookies.
func OptionalSession(cookie CookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess := NewSession(ReadAuthCookie(c, cookie)); sess != nil {
			setSession(c, sess)
		}
		return c.Next()
	}
}

// RequirePermissions rejects sessions lacking all of the given permissions
// with 403. Full access passes.
func RequirePermissions(permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return unauthorized(c, "Authentication required")
		}
		if !sess.Claims.HasAny(permissions) {
			return forbidden(c, "Permission denied")
		}
		return c.Next()
	}
}

// RequireFullAccess guards the ops surface.
func RequireFullAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if sess == nil {
			return unauthorized(c, "Authentication required")
		}
		if !sess.Claims.HasFullAccess() {
			return forbidden(c, "Full access required")
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{"code": "UNAUTHORIZED", "message": msg},
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": fiber.Map{"code": "FORBIDDEN", "message": msg},
	})
}
