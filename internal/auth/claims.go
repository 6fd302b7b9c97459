package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PermFullAccess is the reserved permission that grants every capability.
const PermFullAccess = "FULL_ACCESS"

// adminRoleMarker is a compatibility shim: role names containing this word
// are treated as full access until the backend reliably sends the explicit
// full_access claim. Known false-positive risk for roles that merely contain
// the word; flagged for product clarification before removal.
const adminRoleMarker = "ADMIN"

// ClockSkew is the tolerance applied when checking token expiry.
const ClockSkew = 60 * time.Second

// TokenClaims is the decoded JWT payload. The gateway never verifies the
// signature; the backend is the trust boundary and re-checks every operation.
type TokenClaims struct {
	jwt.RegisteredClaims
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	FullAccess  bool     `json:"full_access"`
}

// DecodeToken parses the payload segment of a compact JWT without verifying
// the signature. Malformed input (wrong segment count, bad base64, bad JSON)
// returns nil; no error or panic escapes to callers.
func DecodeToken(raw string) *TokenClaims {
	if raw == "" {
		return nil
	}
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}

// Expired reports whether the token's expiry is more than ClockSkew in the
// past. Missing expiry or nil claims count as expired (fail closed).
func (c *TokenClaims) Expired() bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return time.Now().After(c.ExpiresAt.Time.Add(ClockSkew))
}

// HasFullAccess reports whether every permission check should pass. Three
// independent conditions, any one sufficient: the explicit claim, the
// reserved permission, or the role-name marker shim.
func (c *TokenClaims) HasFullAccess() bool {
	if c == nil {
		return false
	}
	if c.FullAccess {
		return true
	}
	for _, p := range c.Permissions {
		if p == PermFullAccess {
			return true
		}
	}
	for _, r := range c.Roles {
		if strings.Contains(strings.ToUpper(r), adminRoleMarker) {
			return true
		}
	}
	return false
}

// Has reports whether the claims carry the given permission. Exact,
// case-sensitive membership; full access short-circuits to true.
func (c *TokenClaims) Has(permission string) bool {
	if c == nil {
		return false
	}
	if c.HasFullAccess() {
		return true
	}
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of the given permissions is present.
// Empty input is false for non-admin claims.
func (c *TokenClaims) HasAny(permissions []string) bool {
	if c == nil {
		return false
	}
	if c.HasFullAccess() {
		return true
	}
	for _, p := range permissions {
		if c.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of the given permissions is present.
// Empty input is vacuously true.
func (c *TokenClaims) HasAll(permissions []string) bool {
	if c == nil {
		return false
	}
	if c.HasFullAccess() {
		return true
	}
	for _, p := range permissions {
		if !c.Has(p) {
			return false
		}
	}
	return true
}
