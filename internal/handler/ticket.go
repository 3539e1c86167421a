package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/auth"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/queue"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// EventPublisher sends ticket lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TicketEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, queue.TicketEvent) error { return nil }

// TicketHandler serves service tickets, their assignments and the
// per-principal ticket views.
type TicketHandler struct {
	Tickets  *repository.TicketRepo
	Vehicles *repository.VehicleRepo
	Events   EventPublisher
	Cache    Invalidator
	now      func() time.Time
}

func NewTicketHandler(tickets *repository.TicketRepo, vehicles *repository.VehicleRepo, events EventPublisher, cache Invalidator) *TicketHandler {
	if events == nil {
		events = noopPublisher{}
	}
	return &TicketHandler{
		Tickets:  tickets,
		Vehicles: vehicles,
		Events:   events,
		Cache:    orNoop(cache),
		now:      time.Now,
	}
}

type ticketCreateReq struct {
	VIN         string     `json:"vin"`
	Description string     `json:"description"`
	DateIn      *time.Time `json:"date_in"`
}

type ticketUpdateReq struct {
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	AddIDs      []uint64 `json:"add_ids"`
	RemoveIDs   []uint64 `json:"remove_ids"`
}

type assignReq struct {
	MechanicIDs  []uint64 `json:"mechanic_ids"`
	InventoryIDs []uint64 `json:"inventory_ids"`
}

// Create handles POST /service_tickets. Customers may only open tickets on
// vehicles they own.
func (h *TicketHandler) Create(c echo.Context, id auth.Identity) error {
	var req ticketCreateReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	vin := normalizeVIN(req.VIN)
	if msg := missing("vin", vin); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err := h.Vehicles.GetByVIN(ctx, vin)
	if err != nil {
		return repoError(c, err, "Vehicle")
	}
	if !id.Is(model.RoleMechanic) && !isSelf(id, model.RoleCustomer, v.CustomerID) {
		return forbidden(c)
	}
	t := &model.ServiceTicket{VIN: v.VIN, Description: strings.TrimSpace(req.Description)}
	if req.DateIn != nil {
		t.DateIn = req.DateIn.UTC()
	}
	if err := h.Tickets.Create(ctx, t); err != nil {
		return repoError(c, err, "Vehicle")
	}
	h.publish(ctx, id, queue.EventTicketCreated, *t, "")
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /service_tickets: everything for mechanics, the
// caller's own tickets for customers.
func (h *TicketHandler) List(c echo.Context, id auth.Identity) error {
	if id.Is(model.RoleMechanic) {
		return h.list(c, h.Tickets.List)
	}
	return h.MyTickets(c, id)
}

func (h *TicketHandler) Get(c echo.Context, id auth.Identity) error {
	tid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if !id.Is(model.RoleMechanic) {
		owner, err := h.Tickets.OwnerID(ctx, tid)
		if err != nil {
			return repoError(c, err, "Ticket")
		}
		if !isSelf(id, model.RoleCustomer, owner) {
			return forbidden(c)
		}
	}
	t, err := h.Tickets.GetByID(ctx, tid)
	if err != nil {
		return repoError(c, err, "Ticket")
	}
	return c.JSON(http.StatusOK, t)
}

// Update handles PUT /service_tickets/:id. add_ids and remove_ids change the
// assigned mechanics; moving to closed stamps date_out.
func (h *TicketHandler) Update(c echo.Context, id auth.Identity) error {
	tid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	var req ticketUpdateReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	u := repository.TicketUpdate{
		Description:     req.Description,
		AddMechanics:    req.AddIDs,
		RemoveMechanics: req.RemoveIDs,
	}
	if req.Status != nil {
		st, err := model.ParseTicketStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		u.Status = &st
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	prev, err := h.Tickets.Update(ctx, tid, u)
	if err != nil {
		return repoError(c, err, "Ticket")
	}
	t, err := h.Tickets.GetByID(ctx, tid)
	if err != nil {
		return repoError(c, err, "Ticket")
	}
	if len(u.AddMechanics)+len(u.RemoveMechanics) > 0 {
		h.Cache.Invalidate(ctx, "/mechanics")
	}
	if u.Status != nil && *u.Status != prev {
		h.publish(ctx, id, queue.EventTicketStatusChanged, t, prev)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c echo.Context, _ auth.Identity) error {
	tid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tickets.Delete(ctx, tid); err != nil {
		return repoError(c, err, "Ticket")
	}
	h.Cache.Invalidate(ctx, "/mechanics")
	return c.NoContent(http.StatusNoContent)
}

// Assign handles POST /service_tickets/:id/assign and returns the ticket
// with its recomputed total_cost.
func (h *TicketHandler) Assign(c echo.Context, _ auth.Identity) error {
	tid, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "Invalid id")
	}
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.MechanicIDs) == 0 && len(req.InventoryIDs) == 0 {
		return jsonError(c, http.StatusBadRequest, "Missing required field(s): mechanic_ids or inventory_ids")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tickets.Assign(ctx, tid, req.MechanicIDs, req.InventoryIDs); err != nil {
		return repoError(c, err, "Ticket, mechanic or part")
	}
	if len(req.MechanicIDs) > 0 {
		h.Cache.Invalidate(ctx, "/mechanics")
	}
	t, err := h.Tickets.GetByID(ctx, tid)
	if err != nil {
		return repoError(c, err, "Ticket")
	}
	return c.JSON(http.StatusOK, t)
}

// MyAssigned handles GET /mechanic/my-assigned-tickets.
func (h *TicketHandler) MyAssigned(c echo.Context, id auth.Identity) error {
	mid, ok := callerID(id)
	if !ok {
		return forbidden(c)
	}
	return h.list(c, func(ctx context.Context) ([]model.ServiceTicket, error) {
		return h.Tickets.ListByMechanic(ctx, mid)
	})
}

// MyTickets handles GET /customer/my-tickets.
func (h *TicketHandler) MyTickets(c echo.Context, id auth.Identity) error {
	cid, ok := callerID(id)
	if !ok {
		return forbidden(c)
	}
	return h.list(c, func(ctx context.Context) ([]model.ServiceTicket, error) {
		return h.Tickets.ListByCustomer(ctx, cid)
	})
}

func (h *TicketHandler) list(c echo.Context, fetch func(context.Context) ([]model.ServiceTicket, error)) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := fetch(ctx)
	if err != nil {
		return repoError(c, err, "Ticket")
	}
	return c.JSON(http.StatusOK, items)
}

// publish is best effort; a broker outage never fails the request.
func (h *TicketHandler) publish(ctx context.Context, id auth.Identity, kind string, t model.ServiceTicket, prev model.TicketStatus) {
	ev := queue.TicketEvent{
		Type:           kind,
		TicketID:       t.ID,
		VIN:            t.VIN,
		Status:         string(t.Status),
		PreviousStatus: string(prev),
		ActorSubject:   id.Subject,
		ActorRole:      id.Role.String(),
		OccurredAt:     h.now().UTC().Format(time.RFC3339),
	}
	_ = h.Events.Publish(ctx, ev)
}
