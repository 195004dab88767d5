package service

import (
	"errors"
	"fmt"
)

// Business-rule and storage failures returned by the reservation core.
// Handlers translate them into HTTP responses; none of them is retried
// automatically except ErrStorageUnavailable, which callers may retry.
var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientSeats    = errors.New("insufficient seats")
	ErrInvalidBooking       = errors.New("invalid booking")
	ErrInvalidDeadline      = errors.New("invalid payment deadline")
	ErrDeadlinePassed       = errors.New("payment deadline passed")
	ErrDepartureAlready     = errors.New("train already departed")
	ErrCannotEditConfirmed  = errors.New("confirmed reservations cannot be edited")
	ErrNotWaitlisted        = errors.New("reservation is not waitlisted")
	ErrNotPending           = errors.New("reservation is not pending")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicate            = errors.New("already exists")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// InsufficientSeatsError carries the number of seats that were free when a
// request could not be satisfied.  It matches ErrInsufficientSeats.
type InsufficientSeatsError struct {
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("%s: %d available", ErrInsufficientSeats, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientSeats) succeed.
func (e *InsufficientSeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats
}

// AvailableSeats extracts the free-seat count from an insufficient seats
// failure.
func AvailableSeats(err error) (int, bool) {
	var insufficient *InsufficientSeatsError
	if errors.As(err, &insufficient) {
		return insufficient.Available, true
	}
	return 0, false
}

func insufficientSeats(available int) error {
	return &InsufficientSeatsError{Available: available}
}
