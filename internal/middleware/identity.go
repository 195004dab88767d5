package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxActor  = "actor"
)

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	actor, ok := c.Get(ctxActor).(model.Actor)
	return actor, ok && actor.UserID != 0
}

// userKey identifies the caller for rate limiting; anonymous callers share
// "anon".
func userKey(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
