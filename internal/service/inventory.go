package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// SeatInventory is the seat ledger of a train: it owns every change to
// availableSeats and answers whether a waitlist is blocking new bookings.
type SeatInventory struct {
	trains       TrainStore
	reservations ReservationStore
}

// NewSeatInventory wires a SeatInventory over the given store.  Pass a
// transaction-bound store to make its operations part of that transaction.
func NewSeatInventory(store Store) *SeatInventory {
	return &SeatInventory{trains: store, reservations: store}
}

// Reserve takes n seats from the train or fails with *InsufficientSeatsError.
func (inventory *SeatInventory) Reserve(ctx context.Context, trainID uint64, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: seat count must be positive", ErrInvalidBooking)
	}
	return inventory.trains.ReserveSeats(ctx, trainID, n)
}

// Release returns n seats to the train.  The store clamps the counter at the
// train's capacity, so a double release cannot inflate it.
func (inventory *SeatInventory) Release(ctx context.Context, trainID uint64, n int) error {
	if n <= 0 {
		return nil
	}
	return inventory.trains.ReleaseSeats(ctx, trainID, n)
}

// HasActiveWaitlist reports whether any reservation on the train is
// waitlisted.  While it is true new bookings must queue behind it.
func (inventory *SeatInventory) HasActiveWaitlist(ctx context.Context, trainID uint64) (bool, error) {
	return inventory.reservations.HasReservationWithStatus(ctx, trainID, model.StatusWaitlisted)
}
