package middleware

// identity.go keeps the verified caller on the echo context for the
// middleware that runs around protected handlers (request logging, rate
// limit keys). Handlers themselves get the identity as an argument.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
)

const identityKey = "auth.identity"

func setIdentity(c echo.Context, id auth.Identity) { c.Set(identityKey, id) }

// subjectOf returns "<role>:<subject>" for an authenticated request and
// "anon" otherwise.
func subjectOf(c echo.Context) string {
	id, ok := c.Get(identityKey).(auth.Identity)
	if !ok || id.Subject == "" {
		return "anon"
	}
	if id.Role == "" {
		return id.Subject
	}
	return string(id.Role) + ":" + id.Subject
}
