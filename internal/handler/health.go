package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/database"
)

// Datastore is the part of *database.DB the operational endpoints need.
type Datastore interface {
	Ping(ctx context.Context) error
	Diagnose(ctx context.Context) database.Diagnostics
}

// OpsHandler serves the health check used by load balancers and the
// mechanic-only datastore diagnostics.
type OpsHandler struct {
	DB Datastore
}

func NewOpsHandler(db Datastore) *OpsHandler { return &OpsHandler{DB: db} }

// Health handles GET /healthz.
func (h *OpsHandler) Health(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		c.Logger().Errorf("health: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "degraded", "db": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "db": "up"})
}

type diagResponse struct {
	OK bool `json:"ok"`
	database.Diagnostics
}

// Diag handles GET /__diag. It answers 500 when any probe failed.
func (h *OpsHandler) Diag(c echo.Context, _ auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	d := h.DB.Diagnose(ctx)
	resp := diagResponse{OK: d.SelectOne && len(d.Errors) == 0, Diagnostics: d}
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, resp)
}
