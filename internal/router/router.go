// Package router registers the HTTP routes on echo.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// RegisterRoutes registers the unauthenticated operational routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers registration and login under /v1/auth and the
// authenticated profile endpoint /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePassenger, model.RoleAdmin),
	)
}

// RegisterTrains registers the public train catalogue.  cache wraps every
// catalogue read; pass a pass-through middleware to disable it.
func RegisterTrains(e *echo.Echo, t *handler.TrainHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/trains", t.List, cache)
	e.GET("/v1/trains/today", t.Today, cache)
	e.GET("/v1/trains/search", t.Search, cache)
	e.GET("/v1/trains/:id", t.Detail, cache)
}
