package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// dbTimeout bounds every datastore call made on behalf of a request.
const dbTimeout = 5 * time.Second

// Invalidator drops cached responses after a write. *middleware.ResponseCache
// implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, routes ...string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) {}

func orNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// repoError maps repository sentinels to responses; anything else is a 500.
func repoError(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return jsonError(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, repository.ErrEmailExists):
		return jsonError(c, http.StatusConflict, "Email already exists")
	case errors.Is(err, repository.ErrConflict):
		return jsonError(c, http.StatusConflict, what+" conflicts with existing data")
	}
	c.Logger().Errorf("%s: %v", what, err)
	return jsonError(c, http.StatusInternalServerError, "Internal server error")
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// missing returns "Missing required field(s): a, b" for every empty field,
// or "" when all are present. fields alternates name and value.
func missing(fields ...string) string {
	var names []string
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			names = append(names, fields[i])
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "Missing required field(s): " + strings.Join(names, ", ")
}

// isSelf reports whether id is the customer or mechanic with the given row id.
func isSelf(id auth.Identity, role model.Role, rowID uint64) bool {
	if id.Role != role {
		return false
	}
	sub, err := id.ID()
	return err == nil && sub == rowID
}

// callerID parses the subject of an authenticated identity. A token with a
// non-numeric subject cannot own anything.
func callerID(id auth.Identity) (uint64, bool) {
	n, err := id.ID()
	return n, err == nil && n > 0
}

func forbidden(c echo.Context) error { return jsonError(c, http.StatusForbidden, "Forbidden") }
