package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// RegisterReservations registers the passenger reservation endpoints.
// Admins may use them too and book for themselves; the service enforces
// ownership.  limit guards
// the routes that take or release seats.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePassenger, model.RoleAdmin),
	)
	g.POST("/reservations", h.Create, limit)
	g.GET("/my-reservations", h.Mine)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id", h.Patch, limit)
	g.POST("/reservations/:id/pay", h.Pay, limit)
	g.DELETE("/reservations/:id", h.Delete, limit)
}
