// Package middleware holds the echo middleware shared by the routers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller in the
// request context: "user_id" (uint64), "role" (string) and the full
// model.Actor under "actor".
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			actor, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, actor.UserID)
			c.Set(ctxRole, string(actor.Role))
			c.Set(ctxActor, actor)
			return next(c)
		}
	}
}
