package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// MechanicHandler serves mechanic CRUD and the ranking view.
type MechanicHandler struct {
	Mechanics  *repository.MechanicRepo
	BcryptCost int
	Cache      Invalidator
}

func NewMechanicHandler(repo *repository.MechanicRepo, cost int, cache Invalidator) *MechanicHandler {
	return &MechanicHandler{Mechanics: repo, BcryptCost: cost, Cache: orNoop(cache)}
}

type mechanicReq struct {
	Name     *string  `json:"name"`
	Email    *string  `json:"email"`
	Phone    *string  `json:"phone"`
	Address  *string  `json:"address"`
	Salary   *float64 `json:"salary"`
	Password *string  `json:"password"`
}

// Create handles POST /mechanics.
func (h *MechanicHandler) Create(c echo.Context, _ auth.Identity) error {
	var req mechanicReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if msg := missing("name", deref(req.Name), "email", deref(req.Email), "password", deref(req.Password)); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid password")
	}
	m := &model.Mechanic{
		Name:         deref(req.Name),
		Email:        deref(req.Email),
		Phone:        deref(req.Phone),
		Address:      deref(req.Address),
		PasswordHash: hash,
	}
	if req.Salary != nil {
		if *req.Salary < 0 {
			return jsonError(c, http.StatusBadRequest, "salary cannot be negative")
		}
		m.Salary = *req.Salary
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Mechanics.Create(ctx, m); err != nil {
		return repoError(c, err, "Mechanic")
	}
	h.Cache.Invalidate(ctx, "/mechanics")
	return c.JSON(http.StatusCreated, m)
}

func (h *MechanicHandler) List(c echo.Context, _ auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Mechanics.List(ctx)
	if err != nil {
		return repoError(c, err, "Mechanic")
	}
	return c.JSON(http.StatusOK, items)
}

// Ranked handles GET /mechanics/ranked.
func (h *MechanicHandler) Ranked(c echo.Context, _ auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Mechanics.Ranked(ctx)
	if err != nil {
		return repoError(c, err, "Mechanic")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MechanicHandler) Get(c echo.Context, _ auth.Identity) error {
	mid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Mechanics.GetByID(ctx, mid)
	if err != nil {
		return repoError(c, err, "Mechanic")
	}
	return c.JSON(http.StatusOK, m)
}

// Update handles PUT /mechanics/:id with partial fields.
func (h *MechanicHandler) Update(c echo.Context, _ auth.Identity) error {
	mid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	var req mechanicReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Mechanics.GetByID(ctx, mid)
	if err != nil {
		return repoError(c, err, "Mechanic")
	}
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		m.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		m.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		m.Address = strings.TrimSpace(*req.Address)
	}
	if req.Salary != nil {
		if *req.Salary < 0 {
			return jsonError(c, http.StatusBadRequest, "salary cannot be negative")
		}
		m.Salary = *req.Salary
	}
	if m.Name == "" || m.Email == "" {
		return jsonError(c, http.StatusBadRequest, "name and email cannot be empty")
	}
	if pw := deref(req.Password); pw != "" {
		hash, err := utils.HashPassword(pw, h.BcryptCost)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "Invalid password")
		}
		m.PasswordHash = hash
	}
	if err := h.Mechanics.Update(ctx, &m); err != nil {
		return repoError(c, err, "Mechanic")
	}
	h.Cache.Invalidate(ctx, "/mechanics")
	return c.JSON(http.StatusOK, m)
}

func (h *MechanicHandler) Delete(c echo.Context, _ auth.Identity) error {
	mid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Mechanics.Delete(ctx, mid); err != nil {
		return repoError(c, err, "Mechanic")
	}
	h.Cache.Invalidate(ctx, "/mechanics")
	return c.NoContent(http.StatusNoContent)
}
