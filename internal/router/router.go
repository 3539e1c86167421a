// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/mechanic-shop/internal/handler"
	"github.com/iliyamo/mechanic-shop/internal/logging"
	"github.com/iliyamo/mechanic-shop/internal/middleware"
)

// Deps is everything the route table needs. Cache and Limiter may be built
// without Redis; they pass requests through in that case.
type Deps struct {
	Log         logging.Logger
	Gate        *middleware.Gate
	Cache       *middleware.ResponseCache
	Limiter     *middleware.TokenBucket
	Metrics     http.Handler
	CORSOrigins []string

	Auth      *handler.AuthHandler
	Customers *handler.CustomerHandler
	Mechanics *handler.MechanicHandler
	Vehicles  *handler.VehicleHandler
	Inventory *handler.InventoryHandler
	Tickets   *handler.TicketHandler
	Ops       *handler.OpsHandler
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(e)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterCustomer(e, d)
	RegisterMechanic(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational routes.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/", handler.Index)
	e.GET("/docs", handler.Docs)
	e.GET("/swagger.json", handler.SwaggerJSON)
	e.GET("/healthz", d.Ops.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	e.GET("/__diag", d.Gate.Protect(d.Ops.Diag, mechanic...))
}

// RegisterAuth registers the login endpoints behind the rate limiter, plus
// public customer registration.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := d.Limiter.Middleware()
	e.POST("/login", d.Auth.CustomerLogin, limit)
	e.POST("/auth/login", d.Auth.CustomerLogin, limit)
	e.POST("/mechanics/login", d.Auth.MechanicLogin, limit)
	e.POST("/customers", d.Customers.Register)
}

const notFoundPage = `<!DOCTYPE html>
<html><head><title>404 Not Found</title></head>
<body><h1>Not Found</h1><p>The requested URL was not found on the server.</p></body></html>`

// errorHandler renders 404 as an HTML page and 405 as plain text; anything
// else goes to echo's JSON default.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound:
				_ = c.HTML(http.StatusNotFound, notFoundPage)
				return
			case http.StatusMethodNotAllowed:
				_ = c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
				return
			}
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
