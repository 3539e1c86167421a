package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// RegisterMechanic registers mechanics, inventory and service tickets.
// Catalogue reads are served through the response cache, mounted inside
// the guard.
func RegisterMechanic(e *echo.Echo, d Deps) {
	p := d.Gate.Protect
	cached := d.Cache.Middleware()

	e.GET("/mechanics", p(d.Mechanics.List, anyone...))
	e.GET("/mechanics/ranked", p(middleware.Wrap(d.Mechanics.Ranked, cached), anyone...))
	e.GET("/mechanics/:id", p(d.Mechanics.Get, anyone...))
	e.POST("/mechanics", p(d.Mechanics.Create, mechanic...))
	e.PUT("/mechanics/:id", p(d.Mechanics.Update, mechanic...))
	e.DELETE("/mechanics/:id", p(d.Mechanics.Delete, mechanic...))

	e.GET("/inventory", p(middleware.Wrap(d.Inventory.List, cached), anyone...))
	e.GET("/inventory/:id", p(middleware.Wrap(d.Inventory.Get, cached), anyone...))
	e.POST("/inventory", p(d.Inventory.Create, mechanic...))
	e.PUT("/inventory/:id", p(d.Inventory.Update, mechanic...))
	e.DELETE("/inventory/:id", p(d.Inventory.Delete, mechanic...))

	e.POST("/service_tickets", p(d.Tickets.Create, anyone...))
	e.GET("/service_tickets", p(d.Tickets.List, anyone...))
	e.GET("/service_tickets/:id", p(d.Tickets.Get, anyone...))
	e.PUT("/service_tickets/:id", p(d.Tickets.Update, mechanic...))
	e.DELETE("/service_tickets/:id", p(d.Tickets.Delete, mechanic...))
	e.POST("/service_tickets/:id/assign", p(d.Tickets.Assign, mechanic...))

	e.GET("/mechanic/my-assigned-tickets", p(d.Tickets.MyAssigned, mechanic...))
}
