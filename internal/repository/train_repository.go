package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// TrainRepo reads and writes the trains table.  All seat counter changes are
// single conditional UPDATE statements; the row lock taken by LockTrain
// serializes whole lifecycle operations on one train.
type TrainRepo struct {
	q querier
}

// NewTrainRepo returns a TrainRepo bound to db or a transaction.
func NewTrainRepo(q querier) *TrainRepo { return &TrainRepo{q: q} }

const trainColumns = `id, name_eng, name_ar, distance, seat_cost, total_seats, available_seats, status,
	source_station, departure_time, destination_station, arrival_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrain(row rowScanner) (model.Train, error) {
	var t model.Train
	err := row.Scan(
		&t.ID, &t.NameEng, &t.NameAr, &t.Distance, &t.SeatCost, &t.TotalSeats, &t.AvailableSeats, &t.Status,
		&t.Route.SourceStation, &t.Route.DepartureTime, &t.Route.DestinationStation, &t.Route.ArrivalTime,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// GetTrain loads a train by id.
func (r *TrainRepo) GetTrain(ctx context.Context, id uint64) (model.Train, error) {
	t, err := scanTrain(r.q.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = ?`, id))
	if err != nil {
		return model.Train{}, classify(err)
	}
	return t, nil
}

// LockTrain loads a train with SELECT ... FOR UPDATE.  Outside a
// transaction the lock is released immediately.
func (r *TrainRepo) LockTrain(ctx context.Context, id uint64) (model.Train, error) {
	t, err := scanTrain(r.q.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return model.Train{}, classify(err)
	}
	return t, nil
}

// ReserveSeats takes n seats only if that many are free.  When nothing is
// updated it reads the counter back to tell a missing train from a full one.
func (r *TrainRepo) ReserveSeats(ctx context.Context, trainID uint64, n int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trains SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`,
		n, trainID, n)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected > 0 {
		return nil
	}
	var available int
	if err := r.q.QueryRowContext(ctx, `SELECT available_seats FROM trains WHERE id = ?`, trainID).Scan(&available); err != nil {
		return classify(err)
	}
	return &service.InsufficientSeatsError{Available: available}
}

// ReleaseSeats gives n seats back, never raising the counter past capacity.
// The DSN sets clientFoundRows, so zero affected rows means no such train.
func (r *TrainRepo) ReleaseSeats(ctx context.Context, trainID uint64, n int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trains SET available_seats = LEAST(total_seats, available_seats + ?) WHERE id = ?`,
		n, trainID)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return notFound("train", trainID)
	}
	return nil
}

// CreateTrain inserts t.  AvailableSeats starts at TotalSeats and the
// status at active.
func (r *TrainRepo) CreateTrain(ctx context.Context, t *model.Train) error {
	t.AvailableSeats = t.TotalSeats
	if t.Status == "" {
		t.Status = model.TrainActive
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO trains (name_eng, name_ar, distance, seat_cost, total_seats, available_seats, status,
			source_station, departure_time, destination_station, arrival_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.NameEng, t.NameAr, t.Distance, t.SeatCost, t.TotalSeats, t.AvailableSeats, t.Status,
		t.Route.SourceStation, t.Route.DepartureTime.UTC(), t.Route.DestinationStation, t.Route.ArrivalTime.UTC())
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify(err)
	}
	t.ID = uint64(id)
	return nil
}

// TrainQuery filters and pages the public train listing.  Zero values
// disable a filter.
type TrainQuery struct {
	From     string
	To       string
	Date     time.Time // departures on this UTC calendar day
	Upcoming bool      // departures from now on only
	Page     int
	PageSize int
}

// SearchTrains lists active trains matching q ordered by departure time,
// together with the total match count.
func (r *TrainRepo) SearchTrains(ctx context.Context, q TrainQuery) ([]model.Train, int64, error) {
	where := []string{"status = ?"}
	args := []any{model.TrainActive}

	if q.From != "" {
		where = append(where, "LOWER(source_station) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.From)+"%")
	}
	if q.To != "" {
		where = append(where, "LOWER(destination_station) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.To)+"%")
	}
	if !q.Date.IsZero() {
		day := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, time.UTC)
		where = append(where, "departure_time >= ? AND departure_time < ?")
		args = append(args, day, day.AddDate(0, 0, 1))
	}
	if q.Upcoming {
		where = append(where, "departure_time >= UTC_TIMESTAMP()")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trains WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	page, size := normalizePage(q.Page, q.PageSize)
	dataArgs := append(append([]any{}, args...), size, (page-1)*size)
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+trainColumns+` FROM trains WHERE `+cond+` ORDER BY departure_time ASC, id ASC LIMIT ? OFFSET ?`,
		dataArgs...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	out := make([]model.Train, 0, size)
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, 0, classify(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(err)
	}
	return out, total, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
