package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// VehicleHandler serves vehicle CRUD. Customers see and change only their
// own vehicles; mechanics see all.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
}

func NewVehicleHandler(repo *repository.VehicleRepo) *VehicleHandler {
	return &VehicleHandler{Vehicles: repo}
}

type vehicleReq struct {
	VIN          string  `json:"vin"`
	CustomerID   uint64  `json:"customer_id"`
	Make         *string `json:"make"`
	Model        *string `json:"model"`
	Year         *int    `json:"year"`
	LicensePlate *string `json:"license_plate"`
}

func normalizeVIN(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Create handles POST /vehicles. Only a mechanic may name the owner with
// customer_id; every other caller registers the vehicle to themself.
func (h *VehicleHandler) Create(c echo.Context, id auth.Identity) error {
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	v := model.Vehicle{
		VIN:          normalizeVIN(req.VIN),
		CustomerID:   req.CustomerID,
		Make:         deref(req.Make),
		Model:        deref(req.Model),
		LicensePlate: deref(req.LicensePlate),
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if !id.Is(model.RoleMechanic) {
		owner, ok := callerID(id)
		if !ok {
			return forbidden(c)
		}
		v.CustomerID = owner
	}
	if v.VIN == "" || v.CustomerID == 0 {
		owner := ""
		if v.CustomerID != 0 {
			owner = strconv.FormatUint(v.CustomerID, 10)
		}
		return jsonError(c, http.StatusBadRequest, missing("vin", v.VIN, "customer_id", owner))
	}
	if len(v.VIN) > model.MaxVINLength {
		return jsonError(c, http.StatusBadRequest, "vin must be at most 17 characters")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Vehicles.Create(ctx, &v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, http.StatusBadRequest, "Customer does not exist")
		}
		return repoError(c, err, "Vehicle")
	}
	return c.JSON(http.StatusCreated, v)
}

// List handles GET /vehicles.
func (h *VehicleHandler) List(c echo.Context, id auth.Identity) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	var (
		items []model.Vehicle
		err   error
	)
	if id.Is(model.RoleMechanic) {
		items, err = h.Vehicles.List(ctx)
	} else {
		owner, ok := callerID(id)
		if !ok {
			return forbidden(c)
		}
		items, err = h.Vehicles.ListByCustomer(ctx, owner)
	}
	if err != nil {
		return repoError(c, err, "Vehicle")
	}
	return c.JSON(http.StatusOK, items)
}

// load fetches the vehicle named by :vin and checks the caller may touch it.
// It writes the response itself when ok is false.
func (h *VehicleHandler) load(c echo.Context, id auth.Identity) (v model.Vehicle, ok bool, err error) {
	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err = h.Vehicles.GetByVIN(ctx, normalizeVIN(c.Param("vin")))
	if err != nil {
		return v, false, repoError(c, err, "Vehicle")
	}
	if !id.Is(model.RoleMechanic) && !isSelf(id, model.RoleCustomer, v.CustomerID) {
		return v, false, forbidden(c)
	}
	return v, true, nil
}

func (h *VehicleHandler) Get(c echo.Context, id auth.Identity) error {
	v, ok, err := h.load(c, id)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Update handles PUT /vehicles/:vin. The VIN and owner cannot change.
func (h *VehicleHandler) Update(c echo.Context, id auth.Identity) error {
	v, ok, err := h.load(c, id)
	if !ok {
		return err
	}
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Make != nil {
		v.Make = strings.TrimSpace(*req.Make)
	}
	if req.Model != nil {
		v.Model = strings.TrimSpace(*req.Model)
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.LicensePlate != nil {
		v.LicensePlate = strings.TrimSpace(*req.LicensePlate)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Vehicles.Update(ctx, &v); err != nil {
		return repoError(c, err, "Vehicle")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VehicleHandler) Delete(c echo.Context, id auth.Identity) error {
	v, ok, err := h.load(c, id)
	if !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Vehicles.Delete(ctx, v.VIN); err != nil {
		return repoError(c, err, "Vehicle")
	}
	return c.NoContent(http.StatusNoContent)
}
