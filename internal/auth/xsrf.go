package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/securecookie"
)

const (
	xsrfCookieName = "XSRF-TOKEN"
	xsrfHeaderName = "X-XSRF-TOKEN"

	xsrfSubjectKey    = "subject"
	xsrfExpirationKey = "expiration"

	xsrfTokenLife = time.Hour

	// Rewrite the token on safe requests when it expires within this window.
	xsrfRewriteWindow = 30 * time.Minute
)

// safeMethods are idempotent methods as defined by RFC 7231 section 4.2.2.
var safeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}

func isSafeMethod(m string) bool {
	for _, v := range safeMethods {
		if v == m {
			return true
		}
	}
	return false
}

// XSRF implements the token-cookie/header pair required on mutating API
// calls. Login is exempt (credential-protected); the token is issued there.
type XSRF struct {
	codec *securecookie.SecureCookie
}

func NewXSRF(hashKey, blockKey []byte) *XSRF {
	return &XSRF{codec: securecookie.New(hashKey, blockKey)}
}

// Issue writes a fresh XSRF cookie bound to the given subject. The cookie is
// deliberately readable by page scripts so they can echo it in the header.
func (x *XSRF) Issue(c *fiber.Ctx, subject string) error {
	value := map[string]string{
		xsrfSubjectKey:    subject,
		xsrfExpirationKey: time.Now().Add(xsrfTokenLife).Format(time.UnixDate),
	}
	encoded, err := x.codec.Encode(xsrfCookieName, value)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:    xsrfCookieName,
		Value:   encoded,
		Path:    "/",
		Expires: time.Now().Add(xsrfTokenLife),
	})
	return nil
}

// Clear expires the XSRF cookie.
func (x *XSRF) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:    xsrfCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Now().Add(-time.Hour),
	})
}

// Middleware validates the cookie/header pair on non-safe methods and
// refreshes a near-expiry cookie on safe ones. Runs after a session
// middleware; sessionless requests pass through unvalidated.
func (x *XSRF) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)

		if isSafeMethod(c.Method()) {
			if sess != nil {
				x.refresh(c, sess.Subject())
			}
			return c.Next()
		}

		// Without a live session there is no authenticated state to
		// forge; protected routes reject the missing session first.
		if sess != nil && !x.valid(c, sess) {
			return forbidden(c, "Invalid XSRF token")
		}
		return c.Next()
	}
}

func (x *XSRF) refresh(c *fiber.Ctx, subject string) {
	value, ok := x.decode(c.Cookies(xsrfCookieName))
	if ok && value[xsrfSubjectKey] == subject {
		exp, err := time.Parse(time.UnixDate, value[xsrfExpirationKey])
		if err == nil && time.Now().Before(exp.Add(-xsrfRewriteWindow)) {
			return
		}
	}
	if err := x.Issue(c, subject); err != nil {
		// Next mutating call will fail validation and surface the problem.
		return
	}
}

func (x *XSRF) valid(c *fiber.Ctx, sess *Session) bool {
	cookieVal, ok := x.decode(c.Cookies(xsrfCookieName))
	if !ok {
		return false
	}
	exp, err := time.Parse(time.UnixDate, cookieVal[xsrfExpirationKey])
	if err != nil || time.Now().After(exp) {
		return false
	}
	if sess == nil || cookieVal[xsrfSubjectKey] != sess.Subject() {
		return false
	}
	headerVal, ok := x.decode(c.Get(xsrfHeaderName))
	if !ok {
		return false
	}
	return headerVal[xsrfSubjectKey] == cookieVal[xsrfSubjectKey]
}

func (x *XSRF) decode(raw string) (map[string]string, bool) {
	if raw == "" {
		return nil, false
	}
	value := make(map[string]string)
	if err := x.codec.Decode(xsrfCookieName, raw, &value); err != nil {
		return nil, false
	}
	return value, true
}
