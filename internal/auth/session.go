package auth

import (
	"github.com/gofiber/fiber/v2"
)

const sessionLocalsKey = "session"

// Session is the per-request view of the authenticated caller, built by
// middleware from the auth cookie and immutable after construction. There is
// no ambient session state; everything derives from the request's token.
type Session struct {
	Token  string
	Claims *TokenClaims
}

// NewSession decodes the raw token. Returns nil for tokens that do not
// decode or are already expired.
func NewSession(token string) *Session {
	claims := DecodeToken(token)
	if claims == nil || claims.Expired() {
		return nil
	}
	return &Session{Token: token, Claims: claims}
}

// Subject returns the token's subject identifier.
func (s *Session) Subject() string {
	if s == nil || s.Claims == nil {
		return ""
	}
	return s.Claims.Subject
}

// TenantID returns the token's tenant identifier.
func (s *Session) TenantID() string {
	if s == nil || s.Claims == nil {
		return ""
	}
	return s.Claims.TenantID
}

// Capabilities evaluates an action→permission map against the session,
// producing the allow/deny map the UI uses to show or hide actions.
func (s *Session) Capabilities(actions map[string]string) map[string]bool {
	caps := make(map[string]bool, len(actions))
	for action, permission := range actions {
		caps[action] = s != nil && s.Claims.Has(permission)
	}
	return caps
}

// SessionFrom extracts the Session set by middleware, or nil.
func SessionFrom(c *fiber.Ctx) *Session {
	s, _ := c.Locals(sessionLocalsKey).(*Session)
	return s
}

func setSession(c *fiber.Ctx, s *Session) {
	c.Locals(sessionLocalsKey, s)
}
