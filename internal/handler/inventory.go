package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// InventoryHandler serves the parts catalogue. Reads are cached, so every
// write drops the cached /inventory responses.
type InventoryHandler struct {
	Inventory *repository.InventoryRepo
	Cache     Invalidator
}

func NewInventoryHandler(repo *repository.InventoryRepo, cache Invalidator) *InventoryHandler {
	return &InventoryHandler{Inventory: repo, Cache: orNoop(cache)}
}

type inventoryReq struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price"`
}

func (h *InventoryHandler) Create(c echo.Context, _ auth.Identity) error {
	var req inventoryReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	price := ""
	if req.Price != nil {
		price = "set"
	}
	if msg := missing("name", deref(req.Name), "price", price); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	if *req.Price < 0 {
		return jsonError(c, http.StatusBadRequest, "price cannot be negative")
	}
	it := &model.InventoryItem{Name: deref(req.Name), Price: *req.Price}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Inventory.Create(ctx, it); err != nil {
		return repoError(c, err, "Inventory item")
	}
	h.Cache.Invalidate(ctx, "/inventory")
	return c.JSON(http.StatusCreated, it)
}

func (h *InventoryHandler) List(c echo.Context, _ auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Inventory.List(ctx)
	if err != nil {
		return repoError(c, err, "Inventory item")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) Get(c echo.Context, _ auth.Identity) error {
	iid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	it, err := h.Inventory.GetByID(ctx, iid)
	if err != nil {
		return repoError(c, err, "Inventory item")
	}
	return c.JSON(http.StatusOK, it)
}

func (h *InventoryHandler) Update(c echo.Context, _ auth.Identity) error {
	iid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	var req inventoryReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	it, err := h.Inventory.GetByID(ctx, iid)
	if err != nil {
		return repoError(c, err, "Inventory item")
	}
	if req.Name != nil {
		it.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		it.Price = *req.Price
	}
	if it.Name == "" || it.Price < 0 {
		return jsonError(c, http.StatusBadRequest, "name cannot be empty and price cannot be negative")
	}
	if err := h.Inventory.Update(ctx, &it); err != nil {
		return repoError(c, err, "Inventory item")
	}
	h.Cache.Invalidate(ctx, "/inventory")
	return c.JSON(http.StatusOK, it)
}

// Delete refuses parts that are still attached to a ticket (409).
func (h *InventoryHandler) Delete(c echo.Context, _ auth.Identity) error {
	iid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Inventory.Delete(ctx, iid); err != nil {
		return repoError(c, err, "Inventory item")
	}
	h.Cache.Invalidate(ctx, "/inventory")
	return c.NoContent(http.StatusNoContent)
}
