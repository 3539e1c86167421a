package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
)

// IdentityHandler is a protected handler. It receives the verified caller
// identity as an argument instead of digging it out of the context.
type IdentityHandler func(c echo.Context, id auth.Identity) error

// DecisionRecorder counts guard outcomes. *metrics.Metrics implements it.
type DecisionRecorder interface {
	RecordAuthDecision(result string)
}

// Gate adapts auth.Guard to echo handlers.
type Gate struct {
	guard    *auth.Guard
	recorder DecisionRecorder
}

func NewGate(g *auth.Guard, rec DecisionRecorder) *Gate {
	return &Gate{guard: g, recorder: rec}
}

// Protect wraps h so it only runs for callers holding a valid token with one
// of roles (any role when roles is empty). Missing or invalid tokens get 401,
// a wrong role gets 403. The body never says why a token was rejected.
func (g *Gate) Protect(h IdentityHandler, roles ...model.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := g.guard.Authorize(c.Request().Header.Get(echo.HeaderAuthorization), roles...)
		switch {
		case err == nil:
			g.record("allow")
			setIdentity(c, id)
			return h(c, id)
		case errors.Is(err, auth.ErrMissingHeader):
			g.record("missing_header")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing or malformed Authorization header"})
		case errors.Is(err, auth.ErrForbidden):
			g.record("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		default:
			g.record("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
		}
	}
}

func (g *Gate) record(result string) {
	if g.recorder != nil {
		g.recorder.RecordAuthDecision(result)
	}
}

// Wrap applies echo middleware inside a protected handler, so it only runs
// after the caller has been authorized. The response cache is mounted this
// way to keep cached bodies behind the token check.
func Wrap(h IdentityHandler, mws ...echo.MiddlewareFunc) IdentityHandler {
	return func(c echo.Context, id auth.Identity) error {
		next := func(c echo.Context) error { return h(c, id) }
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next(c)
	}
}
