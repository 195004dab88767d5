package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/logging"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// writeError turns a service error into a JSON error response.  Unknown
// errors become 500 with a generic message; the detail is left to the
// request logger.
func writeError(c echo.Context, err error) error {
	status, message := statusFor(err)
	body := echo.Map{"error": message}
	if available, ok := service.AvailableSeats(err); ok {
		body["available"] = available
	}
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		c.Set(logging.HandlerErrorKey, err)
	}
	return c.JSON(status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInsufficientSeats):
		return http.StatusConflict, "insufficient seats"
	case errors.Is(err, service.ErrInvalidBooking):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidDeadline):
		return http.StatusBadRequest, "payment deadline cannot be met before departure"
	case errors.Is(err, service.ErrDeadlinePassed):
		return http.StatusGone, "payment deadline passed"
	case errors.Is(err, service.ErrDepartureAlready):
		return http.StatusGone, "train already departed"
	case errors.Is(err, service.ErrCannotEditConfirmed):
		return http.StatusConflict, "confirmed reservations cannot be edited"
	case errors.Is(err, service.ErrNotWaitlisted):
		return http.StatusConflict, "reservation is not waitlisted"
	case errors.Is(err, service.ErrNotPending):
		return http.StatusConflict, "reservation is not pending"
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, "already exists"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable, retry later"
	}
	return http.StatusInternalServerError, "internal error"
}
