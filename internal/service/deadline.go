package service

import (
	"fmt"
	"time"
)

const (
	earlyBookingWindow = 24 * time.Hour
	lateBookingGrace   = 2 * time.Hour
	boardingCutoff     = 30 * time.Minute
)

// PaymentDeadline computes the latest time a pending reservation may be paid.
// Bookings made more than a day before departure must be paid a day before
// departure; later bookings get two hours, but never past half an hour
// before departure.  The result always lies in (now, departure].
func PaymentDeadline(now, departure time.Time) (time.Time, error) {
	var deadline time.Time
	switch {
	case departure.Sub(now) > earlyBookingWindow:
		deadline = departure.Add(-earlyBookingWindow)
	case now.Before(departure):
		deadline = now.Add(lateBookingGrace)
		if cutoff := departure.Add(-boardingCutoff); cutoff.Before(deadline) {
			deadline = cutoff
		}
	default:
		return time.Time{}, fmt.Errorf("%w: departure already passed", ErrInvalidBooking)
	}
	if !deadline.After(now) || deadline.After(departure) {
		return time.Time{}, fmt.Errorf("%w: %s not within (%s, %s]", ErrInvalidDeadline,
			deadline.Format(time.RFC3339), now.Format(time.RFC3339), departure.Format(time.RFC3339))
	}
	return deadline, nil
}
