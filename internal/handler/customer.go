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

// CustomerHandler serves registration and customer CRUD.
type CustomerHandler struct {
	Customers  *repository.CustomerRepo
	BcryptCost int
}

func NewCustomerHandler(repo *repository.CustomerRepo, cost int) *CustomerHandler {
	return &CustomerHandler{Customers: repo, BcryptCost: cost}
}

// customerReq uses pointers so PUT can tell "absent" from "empty".
type customerReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	Password  *string `json:"password"`
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// Register handles the public POST /customers.
func (h *CustomerHandler) Register(c echo.Context) error {
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if msg := missing(
		"first_name", deref(req.FirstName),
		"last_name", deref(req.LastName),
		"email", deref(req.Email),
		"password", deref(req.Password),
	); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid password")
	}
	cust := &model.Customer{
		FirstName:    deref(req.FirstName),
		LastName:     deref(req.LastName),
		Phone:        deref(req.Phone),
		Email:        deref(req.Email),
		Address:      deref(req.Address),
		PasswordHash: hash,
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Customers.Create(ctx, cust); err != nil {
		return repoError(c, err, "Customer")
	}
	return c.JSON(http.StatusCreated, cust)
}

// List handles GET /customers (mechanics only).
func (h *CustomerHandler) List(c echo.Context, _ auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Customers.List(ctx)
	if err != nil {
		return repoError(c, err, "Customer")
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /customers/:id for mechanics and the customer themself.
func (h *CustomerHandler) Get(c echo.Context, id auth.Identity) error {
	cid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	if !id.Is(model.RoleMechanic) && !isSelf(id, model.RoleCustomer, cid) {
		return forbidden(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cust, err := h.Customers.GetByID(ctx, cid)
	if err != nil {
		return repoError(c, err, "Customer")
	}
	return c.JSON(http.StatusOK, cust)
}

// Update handles PUT /customers/:id. Only supplied fields change.
func (h *CustomerHandler) Update(c echo.Context, id auth.Identity) error {
	cid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	if !id.Is(model.RoleMechanic) && !isSelf(id, model.RoleCustomer, cid) {
		return forbidden(c)
	}
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	cust, err := h.Customers.GetByID(ctx, cid)
	if err != nil {
		return repoError(c, err, "Customer")
	}
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{req.FirstName, &cust.FirstName},
		{req.LastName, &cust.LastName},
		{req.Phone, &cust.Phone},
		{req.Email, &cust.Email},
		{req.Address, &cust.Address},
	} {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
		}
	}
	if cust.FirstName == "" || cust.LastName == "" || cust.Email == "" {
		return jsonError(c, http.StatusBadRequest, "first_name, last_name and email cannot be empty")
	}
	if pw := deref(req.Password); pw != "" {
		hash, err := utils.HashPassword(pw, h.BcryptCost)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "Invalid password")
		}
		cust.PasswordHash = hash
	}
	if err := h.Customers.Update(ctx, &cust); err != nil {
		return repoError(c, err, "Customer")
	}
	return c.JSON(http.StatusOK, cust)
}

// Delete handles DELETE /customers/:id. Vehicles and tickets go with it.
func (h *CustomerHandler) Delete(c echo.Context, id auth.Identity) error {
	cid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	if !id.Is(model.RoleMechanic) && !isSelf(id, model.RoleCustomer, cid) {
		return forbidden(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Customers.Delete(ctx, cid); err != nil {
		return repoError(c, err, "Customer")
	}
	return c.NoContent(http.StatusNoContent)
}
