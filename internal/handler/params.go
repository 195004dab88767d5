package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/model"
)

// pathID parses the :id path parameter.  On failure it has already written
// a 400 response and returns ok == false.
func pathID(c echo.Context) (uint64, bool, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	return id, true, nil
}

// actorOf returns the authenticated caller.  The routes using it sit behind
// JWTAuth, so a missing actor is a 401.
func actorOf(c echo.Context) (model.Actor, bool, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return actor, true, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return fallback
}
