package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// RegisterAdmin registers the admin-only endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, t *handler.TrainHandler, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/trains", t.Create)
	g.GET("/trains/:id/reservations", h.TrainReservations)
	g.GET("/trains/:id/waitlist", h.Waitlist)
	g.POST("/trains/:id/waitlist/promote-next", h.PromoteNext)

	g.POST("/reservations", h.AdminCreate)
	g.POST("/reservations/:id/promote", h.Promote)
	g.PATCH("/reservations/:id", h.Patch)
	g.DELETE("/reservations/:id", h.Delete)
}
