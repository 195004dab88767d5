// Package servicetest provides an in-memory service.Store for tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// Memory is a mutex-guarded service.Store.  Stores from NewMemory run one
// transaction at a time.  Stores from NewRowLockingMemory run transactions
// concurrently the way InnoDB does: plain reads take no lock while
// LockTrain and LockReservation hold a per-row lock until the transaction
// ends.  Either way a failed transaction is undone change by change.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rowLocking bool
	rows       map[string]*sync.Mutex
	lockHook   func(row string)

	trains       map[uint64]model.Train
	passengers   map[uint64]model.Passenger
	reservations map[uint64]model.Reservation
	nextID       uint64
	failures     map[string]error
}

var (
	_ service.Store = (*Memory)(nil)
	_ service.Store = (*memoryTx)(nil)
)

// NewMemory returns an empty store with serialized transactions.
func NewMemory() *Memory {
	return &Memory{
		rows:         make(map[string]*sync.Mutex),
		trains:       make(map[uint64]model.Train),
		passengers:   make(map[uint64]model.Passenger),
		reservations: make(map[uint64]model.Reservation),
		failures:     make(map[string]error),
	}
}

// NewRowLockingMemory returns an empty store with concurrent transactions
// and row locks.
func NewRowLockingMemory() *Memory {
	memory := NewMemory()
	memory.rowLocking = true
	return memory
}

// BeforeRowLock installs fn to run before a transaction waits for a row
// lock such as "train:1".  Tests use it to line transactions up.
func (memory *Memory) BeforeRowLock(fn func(row string)) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.lockHook = fn
}

// AddTrain seeds a train, assigning an id when it has none.
func (memory *Memory) AddTrain(train model.Train) model.Train {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if train.ID == 0 {
		train.ID = memory.allocateID()
	}
	if train.Status == "" {
		train.Status = model.TrainActive
	}
	memory.trains[train.ID] = train
	return train
}

// AddPassenger seeds a passenger, assigning an id when it has none.
func (memory *Memory) AddPassenger(passenger model.Passenger) model.Passenger {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if passenger.ID == 0 {
		passenger.ID = memory.allocateID()
	}
	if passenger.LoyaltyTier == "" {
		passenger.LoyaltyTier = model.TierRegular
	}
	if passenger.Role == "" {
		passenger.Role = model.RolePassenger
	}
	memory.passengers[passenger.ID] = passenger
	return passenger
}

// AddReservation seeds a reservation as-is.  The seat counter is not
// touched.
func (memory *Memory) AddReservation(reservation model.Reservation) model.Reservation {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if reservation.ID == 0 {
		reservation.ID = memory.allocateID()
	}
	memory.reservations[reservation.ID] = cloneReservation(reservation)
	return reservation
}

// FailOn makes the named store method return err until cleared with a nil
// err.
func (memory *Memory) FailOn(method string, err error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if err == nil {
		delete(memory.failures, method)
		return
	}
	memory.failures[method] = err
}

// Train returns the stored train for assertions.
func (memory *Memory) Train(id uint64) model.Train {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.trains[id]
}

// Passenger returns the stored passenger for assertions.
func (memory *Memory) Passenger(id uint64) model.Passenger {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.passengers[id]
}

// Reservation returns the stored reservation for assertions.
func (memory *Memory) Reservation(id uint64) (model.Reservation, bool) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	reservation, ok := memory.reservations[id]
	return cloneReservation(reservation), ok
}

// ReservationCount returns how many reservations are stored.
func (memory *Memory) ReservationCount() int {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return len(memory.reservations)
}

func (memory *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx service.Store) error) error {
	if !memory.rowLocking {
		memory.txMu.Lock()
		defer memory.txMu.Unlock()
	}
	tx := &memoryTx{Memory: memory, held: make(map[string]*sync.Mutex)}
	defer tx.unlockRows()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (memory *Memory) GetTrain(_ context.Context, id uint64) (model.Train, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if err := memory.failure("GetTrain"); err != nil {
		return model.Train{}, err
	}
	train, ok := memory.trains[id]
	if !ok {
		return model.Train{}, fmt.Errorf("train %d: %w", id, service.ErrNotFound)
	}
	return train, nil
}

func (memory *Memory) LockTrain(ctx context.Context, id uint64) (model.Train, error) {
	return memory.GetTrain(ctx, id)
}

func (memory *Memory) ReserveSeats(_ context.Context, trainID uint64, n int) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.reserveSeats(trainID, n)
	return err
}

func (memory *Memory) reserveSeats(trainID uint64, n int) (func(), error) {
	if err := memory.failure("ReserveSeats"); err != nil {
		return nil, err
	}
	train, ok := memory.trains[trainID]
	if !ok {
		return nil, fmt.Errorf("train %d: %w", trainID, service.ErrNotFound)
	}
	if train.AvailableSeats < n {
		return nil, &service.InsufficientSeatsError{Available: train.AvailableSeats}
	}
	train.AvailableSeats -= n
	memory.trains[trainID] = train
	return func() { memory.shiftSeats(trainID, n) }, nil
}

func (memory *Memory) ReleaseSeats(_ context.Context, trainID uint64, n int) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.releaseSeats(trainID, n)
	return err
}

func (memory *Memory) releaseSeats(trainID uint64, n int) (func(), error) {
	if err := memory.failure("ReleaseSeats"); err != nil {
		return nil, err
	}
	train, ok := memory.trains[trainID]
	if !ok {
		return nil, fmt.Errorf("train %d: %w", trainID, service.ErrNotFound)
	}
	before := train.AvailableSeats
	train.AvailableSeats += n
	if train.AvailableSeats > train.TotalSeats {
		train.AvailableSeats = train.TotalSeats
	}
	memory.trains[trainID] = train
	applied := train.AvailableSeats - before
	return func() { memory.shiftSeats(trainID, -applied) }, nil
}

func (memory *Memory) shiftSeats(trainID uint64, delta int) {
	train := memory.trains[trainID]
	train.AvailableSeats += delta
	memory.trains[trainID] = train
}

func (memory *Memory) GetPassenger(_ context.Context, id uint64) (model.Passenger, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	passenger, ok := memory.passengers[id]
	if !ok {
		return model.Passenger{}, fmt.Errorf("passenger %d: %w", id, service.ErrNotFound)
	}
	return passenger, nil
}

func (memory *Memory) GetPassengerByNationalID(_ context.Context, nationalID string) (model.Passenger, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	for _, passenger := range memory.passengers {
		if passenger.NationalID == nationalID {
			return passenger, nil
		}
	}
	return model.Passenger{}, fmt.Errorf("passenger %q: %w", nationalID, service.ErrNotFound)
}

func (memory *Memory) CreatePassenger(_ context.Context, fields model.NewPassenger) (model.Passenger, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	passenger, _, err := memory.createPassenger(fields)
	return passenger, err
}

func (memory *Memory) createPassenger(fields model.NewPassenger) (model.Passenger, func(), error) {
	if err := memory.failure("CreatePassenger"); err != nil {
		return model.Passenger{}, nil, err
	}
	passenger := model.Passenger{
		ID:          memory.allocateID(),
		NationalID:  fields.NationalID,
		FirstName:   fields.FirstName,
		LastName:    fields.LastName,
		Role:        model.RolePassenger,
		LoyaltyTier: model.TierRegular,
	}
	if fields.Email != "" {
		email := fields.Email
		passenger.Email = &email
	}
	memory.passengers[passenger.ID] = passenger
	return passenger, func() { delete(memory.passengers, passenger.ID) }, nil
}

func (memory *Memory) AddLoyaltyPoints(_ context.Context, id uint64, amount float64) (float64, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	total, _, err := memory.addLoyaltyPoints(id, amount)
	return total, err
}

func (memory *Memory) addLoyaltyPoints(id uint64, amount float64) (float64, func(), error) {
	if err := memory.failure("AddLoyaltyPoints"); err != nil {
		return 0, nil, err
	}
	passenger, ok := memory.passengers[id]
	if !ok {
		return 0, nil, fmt.Errorf("passenger %d: %w", id, service.ErrNotFound)
	}
	passenger.LoyaltyPoints += amount
	memory.passengers[id] = passenger
	undo := func() {
		passenger := memory.passengers[id]
		passenger.LoyaltyPoints -= amount
		memory.passengers[id] = passenger
	}
	return passenger.LoyaltyPoints, undo, nil
}

func (memory *Memory) SetLoyaltyTier(_ context.Context, id uint64, tier model.LoyaltyTier) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.setLoyaltyTier(id, tier)
	return err
}

func (memory *Memory) setLoyaltyTier(id uint64, tier model.LoyaltyTier) (func(), error) {
	passenger, ok := memory.passengers[id]
	if !ok {
		return nil, fmt.Errorf("passenger %d: %w", id, service.ErrNotFound)
	}
	previous := passenger.LoyaltyTier
	passenger.LoyaltyTier = tier
	memory.passengers[id] = passenger
	undo := func() {
		passenger := memory.passengers[id]
		passenger.LoyaltyTier = previous
		memory.passengers[id] = passenger
	}
	return undo, nil
}

func (memory *Memory) CreateReservation(_ context.Context, reservation *model.Reservation) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.createReservation(reservation)
	return err
}

func (memory *Memory) createReservation(reservation *model.Reservation) (func(), error) {
	if err := memory.failure("CreateReservation"); err != nil {
		return nil, err
	}
	reservation.ID = memory.allocateID()
	memory.reservations[reservation.ID] = cloneReservation(*reservation)
	id := reservation.ID
	return func() { delete(memory.reservations, id) }, nil
}

func (memory *Memory) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	reservation, ok := memory.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, service.ErrNotFound)
	}
	return cloneReservation(reservation), nil
}

func (memory *Memory) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return memory.GetReservation(ctx, id)
}

func (memory *Memory) UpdateReservation(_ context.Context, reservation model.Reservation) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.updateReservation(reservation)
	return err
}

func (memory *Memory) updateReservation(reservation model.Reservation) (func(), error) {
	if err := memory.failure("UpdateReservation"); err != nil {
		return nil, err
	}
	previous, ok := memory.reservations[reservation.ID]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", reservation.ID, service.ErrNotFound)
	}
	memory.reservations[reservation.ID] = cloneReservation(reservation)
	return func() { memory.reservations[previous.ID] = previous }, nil
}

func (memory *Memory) DeleteReservation(_ context.Context, id uint64) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	_, err := memory.deleteReservation(id)
	return err
}

func (memory *Memory) deleteReservation(id uint64) (func(), error) {
	if err := memory.failure("DeleteReservation"); err != nil {
		return nil, err
	}
	previous, ok := memory.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", id, service.ErrNotFound)
	}
	delete(memory.reservations, id)
	return func() { memory.reservations[id] = previous }, nil
}

func (memory *Memory) ListReservationsByTrain(_ context.Context, trainID uint64, status model.ReservationStatus) ([]model.Reservation, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.filter(func(reservation model.Reservation) bool {
		return reservation.TrainID == trainID && (status == "" || reservation.Status == status)
	}), nil
}

func (memory *Memory) ListReservationsByPassenger(_ context.Context, passengerID uint64) ([]model.Reservation, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.filter(func(reservation model.Reservation) bool {
		return reservation.PassengerID == passengerID
	}), nil
}

func (memory *Memory) HasReservationWithStatus(_ context.Context, trainID uint64, status model.ReservationStatus) (bool, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	for _, reservation := range memory.reservations {
		if reservation.TrainID == trainID && reservation.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (memory *Memory) MaxSeatNumber(_ context.Context, trainID uint64) (int, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	highest := 0
	for _, reservation := range memory.reservations {
		if reservation.TrainID != trainID {
			continue
		}
		for _, number := range reservation.SeatNumbers {
			if number > highest {
				highest = number
			}
		}
	}
	return highest, nil
}

func (memory *Memory) allocateID() uint64 {
	memory.nextID++
	return memory.nextID
}

func (memory *Memory) failure(method string) error {
	return memory.failures[method]
}

func (memory *Memory) filter(keep func(model.Reservation) bool) []model.Reservation {
	out := []model.Reservation{}
	for _, reservation := range memory.reservations {
		if keep(reservation) {
			out = append(out, cloneReservation(reservation))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func cloneReservation(reservation model.Reservation) model.Reservation {
	if reservation.SeatNumbers != nil {
		reservation.SeatNumbers = append([]int(nil), reservation.SeatNumbers...)
	}
	if reservation.Dependents != nil {
		reservation.Dependents = append([]model.Dependent(nil), reservation.Dependents...)
	}
	if reservation.PaymentDeadline != nil {
		deadline := *reservation.PaymentDeadline
		reservation.PaymentDeadline = &deadline
	}
	return reservation
}

// memoryTx is the view handed to WithTx callbacks.  It records an undo
// step for every write and the row locks it holds.  Nested WithTx calls
// run inline inside the outer transaction.
type memoryTx struct {
	*Memory
	held map[string]*sync.Mutex
	undo []func()
}

func (tx *memoryTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx service.Store) error) error {
	return fn(ctx, tx)
}

func (tx *memoryTx) LockTrain(ctx context.Context, id uint64) (model.Train, error) {
	tx.lockRow(fmt.Sprintf("train:%d", id))
	return tx.Memory.GetTrain(ctx, id)
}

func (tx *memoryTx) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	tx.lockRow(fmt.Sprintf("reservation:%d", id))
	return tx.Memory.GetReservation(ctx, id)
}

func (tx *memoryTx) ReserveSeats(_ context.Context, trainID uint64, n int) error {
	return tx.record(func() (func(), error) { return tx.reserveSeats(trainID, n) })
}

func (tx *memoryTx) ReleaseSeats(_ context.Context, trainID uint64, n int) error {
	return tx.record(func() (func(), error) { return tx.releaseSeats(trainID, n) })
}

func (tx *memoryTx) CreatePassenger(_ context.Context, fields model.NewPassenger) (model.Passenger, error) {
	var passenger model.Passenger
	err := tx.record(func() (undo func(), err error) {
		passenger, undo, err = tx.createPassenger(fields)
		return undo, err
	})
	return passenger, err
}

func (tx *memoryTx) AddLoyaltyPoints(_ context.Context, id uint64, amount float64) (float64, error) {
	var total float64
	err := tx.record(func() (undo func(), err error) {
		total, undo, err = tx.addLoyaltyPoints(id, amount)
		return undo, err
	})
	return total, err
}

func (tx *memoryTx) SetLoyaltyTier(_ context.Context, id uint64, tier model.LoyaltyTier) error {
	return tx.record(func() (func(), error) { return tx.setLoyaltyTier(id, tier) })
}

func (tx *memoryTx) CreateReservation(_ context.Context, reservation *model.Reservation) error {
	return tx.record(func() (func(), error) { return tx.createReservation(reservation) })
}

func (tx *memoryTx) UpdateReservation(_ context.Context, reservation model.Reservation) error {
	return tx.record(func() (func(), error) { return tx.updateReservation(reservation) })
}

func (tx *memoryTx) DeleteReservation(_ context.Context, id uint64) error {
	return tx.record(func() (func(), error) { return tx.deleteReservation(id) })
}

// record runs write under the data mutex and keeps its undo step.
func (tx *memoryTx) record(write func() (func(), error)) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	undo, err := write()
	if err != nil {
		return err
	}
	tx.undo = append(tx.undo, undo)
	return nil
}

func (tx *memoryTx) lockRow(row string) {
	if !tx.rowLocking {
		return
	}
	if _, ok := tx.held[row]; ok {
		return
	}
	tx.mu.Lock()
	lock, ok := tx.rows[row]
	if !ok {
		lock = &sync.Mutex{}
		tx.rows[row] = lock
	}
	hook := tx.lockHook
	tx.mu.Unlock()

	if hook != nil {
		hook(row)
	}
	lock.Lock()
	tx.held[row] = lock
}

func (tx *memoryTx) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) unlockRows() {
	for row, lock := range tx.held {
		lock.Unlock()
		delete(tx.held, row)
	}
}
