package model

import "time"

// ReservationStatus is the state of a reservation.  There is no cancelled
// state: cancelling deletes the row.
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusConfirmed  ReservationStatus = "confirmed"
	StatusWaitlisted ReservationStatus = "waitlisted"
)

// HoldsSeats reports whether a reservation in this state counts against the
// train's capacity.
func (s ReservationStatus) HoldsSeats() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation records a passenger's booking of one or more seats on a train.
//
// Fields:
//
//	ID              – primary key identifier.
//	PassengerID     – user who travels (and pays).
//	TrainID         – train being reserved.
//	SeatsNum        – number of seats, at least one.
//	Status          – pending, confirmed or waitlisted.
//	Cost            – price frozen at creation or last edit.
//	PaymentDeadline – set while pending, nil for waitlisted reservations.
//	SeatNumbers     – assigned on confirmation, empty otherwise.
//	Dependents      – travelling companions, SeatsNum-1 of them when given.
//	CreatedAt       – creation timestamp, the waitlist tie-break.
//	UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64            `json:"id"`
	PassengerID     uint64            `json:"passenger_id"`
	TrainID         uint64            `json:"train_id"`
	SeatsNum        int               `json:"seats_num"`
	Status          ReservationStatus `json:"status"`
	Cost            float64           `json:"cost"`
	PaymentDeadline *time.Time        `json:"payment_deadline,omitempty"`
	SeatNumbers     []int             `json:"seat_numbers"`
	Dependents      []Dependent       `json:"dependents"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Dependent is a companion travelling on the same reservation.
type Dependent struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
