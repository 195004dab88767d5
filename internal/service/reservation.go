package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/railway-reservation/internal/model"
)

const (
	operationCreate      = "create"
	operationConfirm     = "confirm_payment"
	operationEdit        = "edit"
	operationCancel      = "cancel"
	operationPromote     = "promote"
	operationPromoteNext = "promote_next"
	operationPublish     = "publish"
)

// Service is the reservation lifecycle manager.  It turns booking requests
// into pending, confirmed or waitlisted reservations and moves them between
// those states, keeping every train's seat counter consistent.  Each
// operation runs in a single store transaction.
type Service struct {
	store  Store
	now    func() time.Time
	logger OperationLogger
	events EventPublisher
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, now: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateRequest describes a new booking.  PassengerID and Passenger are only
// honoured for admins booking on someone's behalf: PassengerID picks an
// existing passenger, Passenger looks one up by national id and creates it
// when absent.  An admin setting neither books for themselves.
type CreateRequest struct {
	TrainID     uint64
	SeatsNum    int
	Dependents  []model.Dependent
	PassengerID uint64
	Passenger   *model.NewPassenger
}

// EditPatch lists the fields of a reservation to change.  Nil fields are
// left as they are.
type EditPatch struct {
	TrainID    *uint64
	SeatsNum   *int
	Dependents *[]model.Dependent
}

// CreateReservation books seats on a train.  When the train has a waitlist
// or no free seats the booking is waitlisted; when enough seats are free it
// is pending (or confirmed straight away for admins); a partial fit fails
// with *InsufficientSeatsError.
func (service *Service) CreateReservation(ctx context.Context, actor model.Actor, request CreateRequest) (model.Reservation, error) {
	var created model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if err := validateBooking(request.SeatsNum, request.Dependents); err != nil {
			return err
		}
		passenger, err := resolvePassenger(ctx, tx, actor, request)
		if err != nil {
			return err
		}
		train, err := tx.LockTrain(ctx, request.TrainID)
		if err != nil {
			return err
		}
		now := service.now()
		if err := checkBookable(train, now); err != nil {
			return err
		}
		reservation := model.Reservation{
			PassengerID: passenger.ID,
			TrainID:     train.ID,
			SeatsNum:    request.SeatsNum,
			Cost:        Fare(train.SeatCost, request.SeatsNum, passenger.LoyaltyTier),
			Dependents:  normalizeDependents(request.Dependents),
			SeatNumbers: []int{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		seats := NewSeatInventory(tx)
		waitlistActive, err := seats.HasActiveWaitlist(ctx, train.ID)
		if err != nil {
			return err
		}
		switch {
		case waitlistActive || train.AvailableSeats == 0:
			reservation.Status = model.StatusWaitlisted
		case train.AvailableSeats >= request.SeatsNum:
			if actor.IsAdmin() {
				numbers, err := nextSeatNumbers(ctx, tx, train.ID, request.SeatsNum)
				if err != nil {
					return err
				}
				reservation.Status = model.StatusConfirmed
				reservation.SeatNumbers = numbers
			} else {
				deadline, err := PaymentDeadline(now, train.DepartureTime())
				if err != nil {
					return err
				}
				reservation.Status = model.StatusPending
				reservation.PaymentDeadline = &deadline
			}
			if err := seats.Reserve(ctx, train.ID, request.SeatsNum); err != nil {
				return err
			}
		default:
			return insufficientSeats(train.AvailableSeats)
		}
		if err := tx.CreateReservation(ctx, &reservation); err != nil {
			return err
		}
		if reservation.Status == model.StatusConfirmed {
			if _, err := NewLoyaltyLedger(tx).AddPoints(ctx, passenger.ID, train.Distance); err != nil {
				return err
			}
		}
		created = reservation
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreate,
		ReservationID: created.ID,
		TrainID:       request.TrainID,
		PassengerID:   created.PassengerID,
		Status:        created.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return model.Reservation{}, operationError
	}
	service.publish(ctx, EventCreated, created)
	return created, nil
}

// ConfirmPayment settles a pending reservation: it assigns seat numbers
// after the highest one already given out on the train and credits the
// passenger distance × seats loyalty points.
func (service *Service) ConfirmPayment(ctx context.Context, actor model.Actor, reservationID uint64) (model.Reservation, error) {
	var confirmed model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		peeked, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if err := authorize(actor, peeked); err != nil {
			return err
		}
		train, err := tx.LockTrain(ctx, peeked.TrainID)
		if err != nil {
			return err
		}
		reservation, err := relockReservation(ctx, tx, peeked)
		if err != nil {
			return err
		}
		if reservation.Status != model.StatusPending {
			return ErrNotPending
		}
		now := service.now()
		if reservation.PaymentDeadline != nil && now.After(*reservation.PaymentDeadline) {
			return ErrDeadlinePassed
		}
		if now.After(train.DepartureTime()) {
			return ErrDepartureAlready
		}
		numbers, err := nextSeatNumbers(ctx, tx, train.ID, reservation.SeatsNum)
		if err != nil {
			return err
		}
		reservation.Status = model.StatusConfirmed
		reservation.SeatNumbers = numbers
		reservation.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, reservation); err != nil {
			return err
		}
		points := train.Distance * float64(reservation.SeatsNum)
		if _, err := NewLoyaltyLedger(tx).AddPoints(ctx, reservation.PassengerID, points); err != nil {
			return err
		}
		confirmed = reservation
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationConfirm,
		ReservationID: reservationID,
		TrainID:       confirmed.TrainID,
		PassengerID:   confirmed.PassengerID,
		Status:        confirmed.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return model.Reservation{}, operationError
	}
	service.publish(ctx, EventConfirmed, confirmed)
	return confirmed, nil
}

// EditReservation changes the train, seat count or dependents of a pending
// or waitlisted reservation.  Pending reservations move their committed
// seats along with the edit and get a fresh deadline; waitlisted ones hold
// no seats and only have their cost recomputed.
func (service *Service) EditReservation(ctx context.Context, actor model.Actor, reservationID uint64, patch EditPatch) (model.Reservation, error) {
	var edited model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		peeked, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if err := authorize(actor, peeked); err != nil {
			return err
		}
		trainID := peeked.TrainID
		if patch.TrainID != nil && *patch.TrainID != 0 {
			trainID = *patch.TrainID
		}
		oldTrain, newTrain, err := lockTrainPair(ctx, tx, peeked.TrainID, trainID)
		if err != nil {
			return err
		}
		reservation, err := relockReservation(ctx, tx, peeked)
		if err != nil {
			return err
		}
		if reservation.Status != model.StatusPending && reservation.Status != model.StatusWaitlisted {
			return ErrCannotEditConfirmed
		}
		now := service.now()
		holdsSeats := reservation.Status == model.StatusPending
		if holdsSeats && reservation.PaymentDeadline != nil && now.After(*reservation.PaymentDeadline) {
			return ErrDeadlinePassed
		}
		seatsNum := reservation.SeatsNum
		if patch.SeatsNum != nil {
			seatsNum = *patch.SeatsNum
		}
		dependents := reservation.Dependents
		if patch.Dependents != nil {
			dependents = *patch.Dependents
		}
		trainChanged := trainID != reservation.TrainID
		if holdsSeats {
			needed := seatsNum - reservation.SeatsNum
			if trainChanged {
				needed = seatsNum
			}
			if needed > 0 && newTrain.AvailableSeats < needed {
				return insufficientSeats(newTrain.AvailableSeats)
			}
		}
		if err := validateBooking(seatsNum, dependents); err != nil {
			return err
		}
		if err := checkBookable(newTrain, now); err != nil {
			return err
		}
		passenger, err := tx.GetPassenger(ctx, reservation.PassengerID)
		if err != nil {
			return err
		}
		reservation.Cost = Fare(newTrain.SeatCost, seatsNum, passenger.LoyaltyTier)
		if holdsSeats {
			deadline, err := PaymentDeadline(now, newTrain.DepartureTime())
			if err != nil {
				return err
			}
			reservation.PaymentDeadline = &deadline
			seats := NewSeatInventory(tx)
			if trainChanged {
				if err := seats.Reserve(ctx, newTrain.ID, seatsNum); err != nil {
					return err
				}
				if err := seats.Release(ctx, oldTrain.ID, reservation.SeatsNum); err != nil {
					return err
				}
			} else if delta := seatsNum - reservation.SeatsNum; delta > 0 {
				if err := seats.Reserve(ctx, newTrain.ID, delta); err != nil {
					return err
				}
			} else if delta < 0 {
				if err := seats.Release(ctx, newTrain.ID, -delta); err != nil {
					return err
				}
			}
		}
		reservation.TrainID = newTrain.ID
		reservation.SeatsNum = seatsNum
		reservation.Dependents = normalizeDependents(dependents)
		reservation.UpdatedAt = now
		if err := tx.UpdateReservation(ctx, reservation); err != nil {
			return err
		}
		edited = reservation
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationEdit,
		ReservationID: reservationID,
		TrainID:       edited.TrainID,
		PassengerID:   edited.PassengerID,
		Status:        edited.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return model.Reservation{}, operationError
	}
	service.publish(ctx, EventEdited, edited)
	return edited, nil
}

// CancelReservation deletes a reservation and gives its seats back to the
// train when it was holding any.
func (service *Service) CancelReservation(ctx context.Context, actor model.Actor, reservationID uint64) error {
	var cancelled model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		peeked, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if err := authorize(actor, peeked); err != nil {
			return err
		}
		if _, err := tx.LockTrain(ctx, peeked.TrainID); err != nil {
			return err
		}
		reservation, err := relockReservation(ctx, tx, peeked)
		if err != nil {
			return err
		}
		if reservation.Status.HoldsSeats() {
			if err := NewSeatInventory(tx).Release(ctx, reservation.TrainID, reservation.SeatsNum); err != nil {
				return err
			}
		}
		if err := tx.DeleteReservation(ctx, reservation.ID); err != nil {
			return err
		}
		cancelled = reservation
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancel,
		ReservationID: reservationID,
		TrainID:       cancelled.TrainID,
		PassengerID:   cancelled.PassengerID,
		Status:        cancelled.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return operationError
	}
	service.publish(ctx, EventCancelled, cancelled)
	return nil
}

// PromoteReservation moves a waitlisted reservation to pending, taking its
// seats from the train and computing a brand new payment deadline.
func (service *Service) PromoteReservation(ctx context.Context, reservationID uint64) (model.Reservation, error) {
	var promoted model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		peeked, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		train, err := tx.LockTrain(ctx, peeked.TrainID)
		if err != nil {
			return err
		}
		reservation, err := relockReservation(ctx, tx, peeked)
		if err != nil {
			return err
		}
		if reservation.Status != model.StatusWaitlisted {
			return ErrNotWaitlisted
		}
		promoted, err = service.promoteLocked(ctx, tx, reservation, train)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationPromote,
		ReservationID: reservationID,
		TrainID:       promoted.TrainID,
		PassengerID:   promoted.PassengerID,
		Status:        promoted.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return model.Reservation{}, operationError
	}
	service.publish(ctx, EventPromoted, promoted)
	return promoted, nil
}

// PromoteNext promotes the highest-priority waitlisted reservation on a
// train (loyalty tier first, then earliest booking) whose seat count fits
// the free seats.  It fails with ErrNotFound when nobody is waiting and
// with *InsufficientSeatsError when nobody waiting fits.
func (service *Service) PromoteNext(ctx context.Context, trainID uint64) (model.Reservation, error) {
	var promoted model.Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		train, err := tx.LockTrain(ctx, trainID)
		if err != nil {
			return err
		}
		buckets, err := NewWaitlistResolver(tx).List(ctx, trainID)
		if err != nil {
			return err
		}
		queue := buckets.Ordered()
		if len(queue) == 0 {
			return fmt.Errorf("%w: no waitlisted reservations", ErrNotFound)
		}
		for _, entry := range queue {
			if entry.Reservation.SeatsNum <= train.AvailableSeats {
				promoted, err = service.promoteLocked(ctx, tx, entry.Reservation, train)
				return err
			}
		}
		return insufficientSeats(train.AvailableSeats)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationPromoteNext,
		ReservationID: promoted.ID,
		TrainID:       trainID,
		PassengerID:   promoted.PassengerID,
		Status:        promoted.Status,
		Error:         operationError,
	})
	if operationError != nil {
		return model.Reservation{}, operationError
	}
	service.publish(ctx, EventPromoted, promoted)
	return promoted, nil
}

// ListWaitlist returns the train's waitlisted reservations bucketed by the
// passengers' current loyalty tier.
func (service *Service) ListWaitlist(ctx context.Context, trainID uint64) (WaitlistBuckets, error) {
	if _, err := service.store.GetTrain(ctx, trainID); err != nil {
		return WaitlistBuckets{}, err
	}
	return NewWaitlistResolver(service.store).List(ctx, trainID)
}

// GetReservation loads one reservation visible to the actor.
func (service *Service) GetReservation(ctx context.Context, actor model.Actor, reservationID uint64) (model.Reservation, error) {
	reservation, err := service.store.GetReservation(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := authorize(actor, reservation); err != nil {
		return model.Reservation{}, err
	}
	return reservation, nil
}

// ListPassengerReservations returns every reservation held by a passenger.
func (service *Service) ListPassengerReservations(ctx context.Context, passengerID uint64) ([]model.Reservation, error) {
	return service.store.ListReservationsByPassenger(ctx, passengerID)
}

// ListTrainReservations returns every reservation on a train.
func (service *Service) ListTrainReservations(ctx context.Context, trainID uint64) ([]model.Reservation, error) {
	if _, err := service.store.GetTrain(ctx, trainID); err != nil {
		return nil, err
	}
	return service.store.ListReservationsByTrain(ctx, trainID, "")
}

// promoteLocked performs the waitlisted → pending transition on a train the
// caller has already locked.
func (service *Service) promoteLocked(ctx context.Context, tx Store, reservation model.Reservation, train model.Train) (model.Reservation, error) {
	if train.AvailableSeats < reservation.SeatsNum {
		return model.Reservation{}, insufficientSeats(train.AvailableSeats)
	}
	now := service.now()
	deadline, err := PaymentDeadline(now, train.DepartureTime())
	if err != nil {
		return model.Reservation{}, err
	}
	if err := NewSeatInventory(tx).Reserve(ctx, train.ID, reservation.SeatsNum); err != nil {
		return model.Reservation{}, err
	}
	reservation.Status = model.StatusPending
	reservation.PaymentDeadline = &deadline
	reservation.UpdatedAt = now
	if err := tx.UpdateReservation(ctx, reservation); err != nil {
		return model.Reservation{}, err
	}
	return reservation, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	service.logger.LogOperation(ctx, entry)
}

func (service *Service) publish(ctx context.Context, eventType EventType, reservation model.Reservation) {
	if service.events == nil {
		return
	}
	err := service.events.Publish(ctx, Event{Type: eventType, Reservation: reservation, OccurredAt: service.now()})
	if err != nil {
		service.logOperation(ctx, OperationLog{
			Operation:     operationPublish + ":" + string(eventType),
			ReservationID: reservation.ID,
			TrainID:       reservation.TrainID,
			PassengerID:   reservation.PassengerID,
			Status:        reservation.Status,
			Error:         err,
		})
	}
}

func resolvePassenger(ctx context.Context, tx Store, actor model.Actor, request CreateRequest) (model.Passenger, error) {
	if !actor.IsAdmin() {
		return tx.GetPassenger(ctx, actor.UserID)
	}
	if request.PassengerID != 0 {
		return tx.GetPassenger(ctx, request.PassengerID)
	}
	if request.Passenger == nil {
		return tx.GetPassenger(ctx, actor.UserID)
	}
	if strings.TrimSpace(request.Passenger.NationalID) == "" {
		return model.Passenger{}, fmt.Errorf("%w: passenger national id is required", ErrInvalidBooking)
	}
	fields := *request.Passenger
	fields.NationalID = strings.TrimSpace(fields.NationalID)
	passenger, err := tx.GetPassengerByNationalID(ctx, fields.NationalID)
	if err == nil {
		return passenger, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Passenger{}, err
	}
	fields.FirstName = strings.TrimSpace(fields.FirstName)
	fields.LastName = strings.TrimSpace(fields.LastName)
	if fields.FirstName == "" || fields.LastName == "" {
		return model.Passenger{}, fmt.Errorf("%w: new passenger needs first and last name", ErrInvalidBooking)
	}
	return tx.CreatePassenger(ctx, fields)
}

// relockReservation re-reads a reservation under a row lock after its
// train has been locked, so status checks see the latest committed row.  A
// reservation moved to another train in between is reported as retryable.
func relockReservation(ctx context.Context, tx Store, peeked model.Reservation) (model.Reservation, error) {
	reservation, err := tx.LockReservation(ctx, peeked.ID)
	if err != nil {
		return model.Reservation{}, err
	}
	if reservation.TrainID != peeked.TrainID {
		return model.Reservation{}, fmt.Errorf("%w: reservation %d moved to train %d", ErrStorageUnavailable, peeked.ID, reservation.TrainID)
	}
	return reservation, nil
}

// lockTrainPair locks the reservation's current and target trains in id
// order so that concurrent edits cannot deadlock.
func lockTrainPair(ctx context.Context, tx Store, currentID, targetID uint64) (model.Train, model.Train, error) {
	if currentID == targetID {
		train, err := tx.LockTrain(ctx, currentID)
		return train, train, err
	}
	firstID, secondID := currentID, targetID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := tx.LockTrain(ctx, firstID)
	if err != nil {
		return model.Train{}, model.Train{}, err
	}
	second, err := tx.LockTrain(ctx, secondID)
	if err != nil {
		return model.Train{}, model.Train{}, err
	}
	if first.ID == currentID {
		return first, second, nil
	}
	return second, first, nil
}

func nextSeatNumbers(ctx context.Context, reservations ReservationStore, trainID uint64, count int) ([]int, error) {
	highest, err := reservations.MaxSeatNumber(ctx, trainID)
	if err != nil {
		return nil, err
	}
	numbers := make([]int, count)
	for i := range numbers {
		numbers[i] = highest + i + 1
	}
	return numbers, nil
}

func authorize(actor model.Actor, reservation model.Reservation) error {
	if actor.IsAdmin() || reservation.PassengerID == actor.UserID {
		return nil
	}
	return ErrForbidden
}

func checkBookable(train model.Train, now time.Time) error {
	if train.Status == model.TrainFinished {
		return fmt.Errorf("%w: train %d has finished", ErrInvalidBooking, train.ID)
	}
	if !now.Before(train.DepartureTime()) {
		return fmt.Errorf("%w: departure already passed", ErrInvalidBooking)
	}
	return nil
}

func validateBooking(seatsNum int, dependents []model.Dependent) error {
	if seatsNum < 1 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidBooking)
	}
	if len(dependents) == 0 {
		return nil
	}
	if len(dependents) != seatsNum-1 {
		return fmt.Errorf("%w: expected %d dependents, got %d", ErrInvalidBooking, seatsNum-1, len(dependents))
	}
	for i, dependent := range dependents {
		if strings.TrimSpace(dependent.FirstName) == "" || strings.TrimSpace(dependent.LastName) == "" {
			return fmt.Errorf("%w: dependent %d needs first and last name", ErrInvalidBooking, i+1)
		}
	}
	return nil
}

func normalizeDependents(dependents []model.Dependent) []model.Dependent {
	out := make([]model.Dependent, 0, len(dependents))
	for _, dependent := range dependents {
		out = append(out, model.Dependent{
			FirstName: strings.TrimSpace(dependent.FirstName),
			LastName:  strings.TrimSpace(dependent.LastName),
		})
	}
	return out
}
