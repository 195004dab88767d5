// Package queue carries reservation lifecycle events over RabbitMQ.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/railway-reservation/internal/service"
)

// ReservationEvent is the wire payload of a lifecycle event.  It holds
// enough of the reservation for downstream consumers to audit or notify
// without querying the primary database.
type ReservationEvent struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	ReservationID   uint64  `json:"reservation_id"`
	PassengerID     uint64  `json:"passenger_id"`
	TrainID         uint64  `json:"train_id"`
	SeatsNum        int     `json:"seats_num"`
	Status          string  `json:"status"`
	Cost            float64 `json:"cost"`
	SeatNumbers     []int   `json:"seat_numbers"`
	PaymentDeadline string  `json:"payment_deadline,omitempty"`
	OccurredAt      string  `json:"occurred_at"`
}

// NewReservationEvent converts a committed service event into its wire form
// under a fresh message id.
func NewReservationEvent(event service.Event) ReservationEvent {
	r := event.Reservation
	out := ReservationEvent{
		ID:            uuid.NewString(),
		Type:          string(event.Type),
		ReservationID: r.ID,
		PassengerID:   r.PassengerID,
		TrainID:       r.TrainID,
		SeatsNum:      r.SeatsNum,
		Status:        string(r.Status),
		Cost:          r.Cost,
		SeatNumbers:   r.SeatNumbers,
		OccurredAt:    event.OccurredAt.UTC().Format(time.RFC3339),
	}
	if out.SeatNumbers == nil {
		out.SeatNumbers = []int{}
	}
	if r.PaymentDeadline != nil {
		out.PaymentDeadline = r.PaymentDeadline.UTC().Format(time.RFC3339)
	}
	return out
}
