package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

var (
	anyone   []model.Role
	customer = []model.Role{model.RoleCustomer}
	mechanic = []model.Role{model.RoleMechanic}
)

// RegisterCustomer registers customer records, vehicles and the customer
// ticket view. Ownership checks for customers happen in the handlers.
func RegisterCustomer(e *echo.Echo, d Deps) {
	p := d.Gate.Protect

	e.GET("/customers", p(d.Customers.List, mechanic...))
	e.GET("/customers/:id", p(d.Customers.Get, anyone...))
	e.PUT("/customers/:id", p(d.Customers.Update, anyone...))
	e.DELETE("/customers/:id", p(d.Customers.Delete, anyone...))

	e.POST("/vehicles", p(d.Vehicles.Create, anyone...))
	e.GET("/vehicles", p(d.Vehicles.List, anyone...))
	e.GET("/vehicles/:vin", p(d.Vehicles.Get, anyone...))
	e.PUT("/vehicles/:vin", p(d.Vehicles.Update, anyone...))
	e.DELETE("/vehicles/:vin", p(d.Vehicles.Delete, anyone...))

	e.GET("/customer/my-tickets", p(d.Tickets.MyTickets, customer...))
}
