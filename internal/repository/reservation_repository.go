package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their seat
// numbers.  Assigned seat numbers live in reservation_seats, one row per
// seat; dependents are a JSON column on the reservation row.  All
// timestamps are UTC.
type ReservationRepo struct {
	q querier
}

// NewReservationRepo returns a ReservationRepo bound to db or a transaction.
func NewReservationRepo(q querier) *ReservationRepo { return &ReservationRepo{q: q} }

const reservationColumns = `id, passenger_id, train_id, seats_num, status, cost, payment_deadline, dependents, created_at, updated_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		res        model.Reservation
		deadline   sql.NullTime
		dependents []byte
	)
	err := row.Scan(&res.ID, &res.PassengerID, &res.TrainID, &res.SeatsNum, &res.Status, &res.Cost,
		&deadline, &dependents, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	if deadline.Valid {
		d := deadline.Time
		res.PaymentDeadline = &d
	}
	res.Dependents = []model.Dependent{}
	if len(dependents) > 0 {
		if err := json.Unmarshal(dependents, &res.Dependents); err != nil {
			return model.Reservation{}, fmt.Errorf("decode dependents of reservation %d: %w", res.ID, err)
		}
	}
	res.SeatNumbers = []int{}
	return res, nil
}

func encodeDependents(dependents []model.Dependent) ([]byte, error) {
	if dependents == nil {
		dependents = []model.Dependent{}
	}
	return json.Marshal(dependents)
}

func nullDeadline(deadline *time.Time) sql.NullTime {
	if deadline == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: deadline.UTC(), Valid: true}
}

// CreateReservation inserts res with its seat numbers and sets res.ID.
// CreatedAt is written explicitly because it orders the waitlist.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
	dependents, err := encodeDependents(res.Dependents)
	if err != nil {
		return err
	}
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO reservations (passenger_id, train_id, seats_num, status, cost, payment_deadline, dependents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.PassengerID, res.TrainID, res.SeatsNum, res.Status, res.Cost, nullDeadline(res.PaymentDeadline),
		dependents, res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return classify(err)
	}
	res.ID = uint64(id)
	return r.insertSeats(ctx, res.ID, res.TrainID, res.SeatNumbers)
}

// insertSeats writes all seat numbers of a reservation in one statement.
// An empty slice is a no-op.
func (r *ReservationRepo) insertSeats(ctx context.Context, reservationID, trainID uint64, seats []int) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, train_id, seat_number) VALUES `
	args := make([]any, 0, len(seats)*3)
	for i, n := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, reservationID, trainID, n)
	}
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

// GetReservation loads one reservation with its seat numbers.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return model.Reservation{}, classify(err)
	}
	list := []model.Reservation{res}
	if err := r.attachSeats(ctx, list); err != nil {
		return model.Reservation{}, err
	}
	return list[0], nil
}

// LockReservation is GetReservation with a FOR UPDATE row lock that lasts
// until the surrounding transaction ends.
func (r *ReservationRepo) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return model.Reservation{}, classify(err)
	}
	list := []model.Reservation{res}
	if err := r.attachSeats(ctx, list); err != nil {
		return model.Reservation{}, err
	}
	return list[0], nil
}

// UpdateReservation overwrites the mutable columns of res and replaces its
// seat numbers.
func (r *ReservationRepo) UpdateReservation(ctx context.Context, res model.Reservation) error {
	dependents, err := encodeDependents(res.Dependents)
	if err != nil {
		return err
	}
	result, err := r.q.ExecContext(ctx,
		`UPDATE reservations SET train_id = ?, seats_num = ?, status = ?, cost = ?, payment_deadline = ?, dependents = ?, updated_at = ?
		WHERE id = ?`,
		res.TrainID, res.SeatsNum, res.Status, res.Cost, nullDeadline(res.PaymentDeadline), dependents, res.UpdatedAt.UTC(), res.ID)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return notFound("reservation", res.ID)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = ?`, res.ID); err != nil {
		return classify(err)
	}
	return r.insertSeats(ctx, res.ID, res.TrainID, res.SeatNumbers)
}

// DeleteReservation removes a reservation and its seat numbers.
func (r *ReservationRepo) DeleteReservation(ctx context.Context, id uint64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = ?`, id); err != nil {
		return classify(err)
	}
	result, err := r.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return notFound("reservation", id)
	}
	return nil
}

// ListReservationsByTrain returns a train's reservations oldest first.  An
// empty status matches all.
func (r *ReservationRepo) ListReservationsByTrain(ctx context.Context, trainID uint64, status model.ReservationStatus) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE train_id = ?`
	args := []any{trainID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	return r.list(ctx, query+` ORDER BY created_at ASC, id ASC`, args...)
}

// ListReservationsByPassenger returns a passenger's reservations newest
// first.
func (r *ReservationRepo) ListReservationsByPassenger(ctx context.Context, passengerID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE passenger_id = ? ORDER BY created_at DESC, id DESC`, passengerID)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, classify(err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, classify(err)
	}
	// the seat query must not run while this result set is still open on a
	// transaction's connection
	rows.Close()
	if err := r.attachSeats(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachSeats loads the seat numbers of every reservation in list with a
// single IN query.
func (r *ReservationRepo) attachSeats(ctx context.Context, list []model.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(list))
	placeholders := make([]string, 0, len(list))
	args := make([]any, 0, len(list))
	for i, res := range list {
		index[res.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, res.ID)
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT reservation_id, seat_number FROM reservation_seats WHERE reservation_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY reservation_id, seat_number`, args...)
	if err != nil {
		return classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reservationID uint64
			seat          int
		)
		if err := rows.Scan(&reservationID, &seat); err != nil {
			return classify(err)
		}
		if i, ok := index[reservationID]; ok {
			list[i].SeatNumbers = append(list[i].SeatNumbers, seat)
		}
	}
	return classify(rows.Err())
}

// HasReservationWithStatus reports whether the train has any reservation in
// the given status.
func (r *ReservationRepo) HasReservationWithStatus(ctx context.Context, trainID uint64, status model.ReservationStatus) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations WHERE train_id = ? AND status = ?)`, trainID, status).Scan(&exists)
	if err != nil {
		return false, classify(err)
	}
	return exists, nil
}

// MaxSeatNumber returns the highest seat number given out on the train, or
// zero.
func (r *ReservationRepo) MaxSeatNumber(ctx context.Context, trainID uint64) (int, error) {
	var highest int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seat_number), 0) FROM reservation_seats WHERE train_id = ?`, trainID).Scan(&highest)
	if err != nil {
		return 0, classify(err)
	}
	return highest, nil
}
