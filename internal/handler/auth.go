package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
)

// LoginRecorder counts login attempts. *metrics.Metrics implements it.
type LoginRecorder interface {
	RecordLogin(kind, result string)
}

// AuthHandler serves the customer and mechanic login endpoints.
type AuthHandler struct {
	Auth     *auth.Service
	Recorder LoginRecorder
}

func NewAuthHandler(svc *auth.Service, rec LoginRecorder) *AuthHandler {
	return &AuthHandler{Auth: svc, Recorder: rec}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CustomerLogin handles POST /login and POST /auth/login.
func (h *AuthHandler) CustomerLogin(c echo.Context) error {
	return h.login(c, model.RoleCustomer)
}

// MechanicLogin handles POST /mechanics/login.
func (h *AuthHandler) MechanicLogin(c echo.Context) error {
	return h.login(c, model.RoleMechanic)
}

func (h *AuthHandler) login(c echo.Context, kind model.Role) error {
	var req loginReq
	// an unreadable body is reported as missing fields
	_ = c.Bind(&req)
	if msg := missing("email", req.Email, "password", req.Password); msg != "" {
		h.record(kind, "bad_request")
		return jsonError(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	token, _, err := h.Auth.Login(ctx, req.Email, req.Password, kind)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.record(kind, "invalid")
		return jsonError(c, http.StatusUnauthorized, "Invalid credentials")
	case err != nil:
		h.record(kind, "error")
		c.Logger().Errorf("login: %v", err)
		return jsonError(c, http.StatusInternalServerError, "Internal server error")
	}
	h.record(kind, "ok")
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (h *AuthHandler) record(kind model.Role, result string) {
	if h.Recorder != nil {
		h.Recorder.RecordLogin(string(kind), result)
	}
}
