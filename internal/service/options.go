package service

import (
	"context"
	"time"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records every state-changing reservation operation.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one reservation operation and its outcome.
type OperationLog struct {
	Operation     string
	ReservationID uint64
	TrainID       uint64
	PassengerID   uint64
	Status        model.ReservationStatus
	Error         error
}

// EventType names a reservation lifecycle event.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventConfirmed EventType = "reservation.confirmed"
	EventEdited    EventType = "reservation.edited"
	EventPromoted  EventType = "reservation.promoted"
	EventCancelled EventType = "reservation.cancelled"
)

// Event is emitted after a lifecycle operation has been committed.
type Event struct {
	Type        EventType
	Reservation model.Reservation
	OccurredAt  time.Time
}

// EventPublisher ships committed lifecycle events to downstream consumers.
// Publishing is best effort: failures are logged, never returned to the
// caller of the operation.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// WithOperationLogger wires a logger that receives every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithEventPublisher wires the publisher used for lifecycle events.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(service *Service) {
		service.events = publisher
	}
}
