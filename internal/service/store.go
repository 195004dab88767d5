package service

import (
	"context"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// TrainStore reads trains and mutates their free-seat counter.  ReserveSeats
// and ReleaseSeats must each be a single atomic conditional update, never a
// read followed by a write.
type TrainStore interface {
	GetTrain(ctx context.Context, id uint64) (model.Train, error)
	// LockTrain loads a train and, inside a transaction, holds a row lock on
	// it until commit so that seat mutations on one train are serialized.
	LockTrain(ctx context.Context, id uint64) (model.Train, error)
	// ReserveSeats decrements availableSeats by n only if at least n are
	// free; otherwise it returns *InsufficientSeatsError.
	ReserveSeats(ctx context.Context, trainID uint64, n int) error
	// ReleaseSeats increments availableSeats by n, clamped to totalSeats.
	ReleaseSeats(ctx context.Context, trainID uint64, n int) error
}

// PassengerStore reads and creates passengers and accrues loyalty points.
type PassengerStore interface {
	GetPassenger(ctx context.Context, id uint64) (model.Passenger, error)
	GetPassengerByNationalID(ctx context.Context, nationalID string) (model.Passenger, error)
	CreatePassenger(ctx context.Context, fields model.NewPassenger) (model.Passenger, error)
	// AddLoyaltyPoints atomically adds amount and returns the new balance.
	AddLoyaltyPoints(ctx context.Context, id uint64, amount float64) (float64, error)
	SetLoyaltyTier(ctx context.Context, id uint64, tier model.LoyaltyTier) error
}

// ReservationStore is key-based CRUD over reservations plus the queries the
// lifecycle needs.
type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation *model.Reservation) error
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	// LockReservation loads a reservation and, inside a transaction, holds a
	// row lock on it until commit.  Callers lock the reservation's train
	// first.
	LockReservation(ctx context.Context, id uint64) (model.Reservation, error)
	UpdateReservation(ctx context.Context, reservation model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
	// ListReservationsByTrain returns a train's reservations in creation
	// order.  An empty status matches every status.
	ListReservationsByTrain(ctx context.Context, trainID uint64, status model.ReservationStatus) ([]model.Reservation, error)
	ListReservationsByPassenger(ctx context.Context, passengerID uint64) ([]model.Reservation, error)
	HasReservationWithStatus(ctx context.Context, trainID uint64, status model.ReservationStatus) (bool, error)
	// MaxSeatNumber returns the highest seat number assigned on the train,
	// zero when none has been assigned.
	MaxSeatNumber(ctx context.Context, trainID uint64) (int, error)
}

// Store is everything the reservation core needs from persistence.
type Store interface {
	TrainStore
	PassengerStore
	ReservationStore
	// WithTx runs fn against a transaction-bound Store.  fn's error rolls
	// the transaction back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
