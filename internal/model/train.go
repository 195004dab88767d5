package model

import "time"

// TrainStatus is the lifecycle state of a train.  Trains start active and
// are flipped to finished by an external scheduler once they depart; the
// reservation core only ever reads it.
type TrainStatus string

const (
	TrainActive   TrainStatus = "active"
	TrainFinished TrainStatus = "finished"
)

// Train represents a scheduled train run with a fixed seat capacity.
// AvailableSeats is the authoritative free-seat counter and always
// satisfies 0 <= AvailableSeats <= TotalSeats.
//
// Fields:
//
//	ID             – primary key identifier.
//	NameEng        – English display name.
//	NameAr         – Arabic display name.
//	Distance       – route distance, also the loyalty points earned per seat.
//	SeatCost       – price of a single seat before discounts.
//	TotalSeats     – seat capacity.
//	AvailableSeats – seats not held by pending or confirmed reservations.
//	Status         – active or finished.
//	Route          – source and destination stops.
type Train struct {
	ID             uint64      // trains.id
	NameEng        string      // trains.name_eng
	NameAr         string      // trains.name_ar
	Distance       float64     // trains.distance
	SeatCost       float64     // trains.seat_cost
	TotalSeats     int         // trains.total_seats
	AvailableSeats int         // trains.available_seats
	Status         TrainStatus // trains.status
	Route          Route
	CreatedAt      time.Time // trains.created_at
	UpdatedAt      time.Time // trains.updated_at
}

// Route holds the two ends of a train run.  Station topology lives outside
// this service so stations are carried by name.
type Route struct {
	SourceStation      string    // trains.source_station
	DepartureTime      time.Time // trains.departure_time
	DestinationStation string    // trains.destination_station
	ArrivalTime        time.Time // trains.arrival_time
}

// DepartureTime is a shortcut for Route.DepartureTime.
func (t Train) DepartureTime() time.Time { return t.Route.DepartureTime }
