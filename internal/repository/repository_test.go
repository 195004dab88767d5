package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

func newMock(test *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	test.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		test.Fatalf("sqlmock: %v", err)
	}
	test.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectationsMet(test *testing.T, mock sqlmock.Sqlmock) {
	test.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		test.Fatalf("unmet expectations: %v", err)
	}
}

var trainColumnNames = []string{"id", "name_eng", "name_ar", "distance", "seat_cost", "total_seats", "available_seats", "status",
	"source_station", "departure_time", "destination_station", "arrival_time", "created_at", "updated_at"}

var reservationColumnNames = []string{"id", "passenger_id", "train_id", "seats_num", "status", "cost", "payment_deadline", "dependents", "created_at", "updated_at"}

func TestReserveSeatsIsOneConditionalUpdate(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`)).
		WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewTrainRepo(db).ReserveSeats(context.Background(), 7, 2); err != nil {
		test.Fatalf("reserve seats: %v", err)
	}
	expectationsMet(test, mock)
}

func TestReserveSeatsReportsAvailableWhenShort(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = available_seats - ?`)).
		WithArgs(3, 7, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM trains WHERE id = ?`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(1))

	err := NewTrainRepo(db).ReserveSeats(context.Background(), 7, 3)

	if available, ok := service.AvailableSeats(err); !ok || available != 1 {
		test.Fatalf("expected insufficient seats with 1 available, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestReserveSeatsUnknownTrain(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM trains`)).WillReturnRows(sqlmock.NewRows([]string{"available_seats"}))

	err := NewTrainRepo(db).ReserveSeats(context.Background(), 99, 1)

	if !errors.Is(err, service.ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestReleaseSeatsClampsAtCapacity(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = LEAST(total_seats, available_seats + ?) WHERE id = ?`)).
		WithArgs(4, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = LEAST(total_seats, available_seats + ?) WHERE id = ?`)).
		WithArgs(4, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTrainRepo(db)
	if err := repo.ReleaseSeats(context.Background(), 7, 4); err != nil {
		test.Fatalf("release seats: %v", err)
	}
	if err := repo.ReleaseSeats(context.Background(), 8, 4); !errors.Is(err, service.ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestLockTrainSelectsForUpdate(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	departure := time.Date(2026, time.June, 1, 7, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM trains WHERE id = \? FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(trainColumnNames).AddRow(
			5, "Desert Line", "", 450.0, 120.0, 200, 150, "active",
			"Riyadh", departure, "Qassim", departure.Add(4*time.Hour), departure, departure))

	train, err := NewTrainRepo(db).LockTrain(context.Background(), 5)
	if err != nil {
		test.Fatalf("lock train: %v", err)
	}
	if train.AvailableSeats != 150 || train.Status != model.TrainActive || !train.DepartureTime().Equal(departure) {
		test.Fatalf("unexpected train: %+v", train)
	}
	expectationsMet(test, mock)
}

func TestSearchTrainsAppliesFilters(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	day := time.Date(2026, time.June, 1, 15, 0, 0, 0, time.UTC)
	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM trains WHERE status = ? AND LOWER(source_station) LIKE ? AND departure_time >= ? AND departure_time < ?`)).
		WithArgs("active", "%riyadh%", start, start.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY departure_time ASC, id ASC LIMIT ? OFFSET ?`)).
		WithArgs("active", "%riyadh%", start, start.AddDate(0, 0, 1), 10, 10).
		WillReturnRows(sqlmock.NewRows(trainColumnNames).AddRow(
			5, "Desert Line", "", 450.0, 120.0, 200, 150, "active",
			"Riyadh", day, "Qassim", day.Add(4*time.Hour), day, day))

	trains, total, err := NewTrainRepo(db).SearchTrains(context.Background(), TrainQuery{From: "Riyadh", Date: day, Page: 2, PageSize: 10})
	if err != nil {
		test.Fatalf("search trains: %v", err)
	}
	if total != 1 || len(trains) != 1 || trains[0].ID != 5 {
		test.Fatalf("unexpected search result: %d %+v", total, trains)
	}
	expectationsMet(test, mock)
}

func TestCreateReservationWritesSeatsAndDependents(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations (passenger_id, train_id, seats_num, status, cost, payment_deadline, dependents, created_at, updated_at)`)).
		WithArgs(4, 3, 2, "confirmed", 180.0, nil, []byte(`[{"first_name":"Lina","last_name":"Ali"}]`), now, now).
		WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats (reservation_id, train_id, seat_number) VALUES (?, ?, ?),(?, ?, ?)`)).
		WithArgs(15, 3, 4, 15, 3, 5).
		WillReturnResult(sqlmock.NewResult(0, 2))

	res := model.Reservation{
		PassengerID: 4,
		TrainID:     3,
		SeatsNum:    2,
		Status:      model.StatusConfirmed,
		Cost:        180,
		SeatNumbers: []int{4, 5},
		Dependents:  []model.Dependent{{FirstName: "Lina", LastName: "Ali"}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := NewReservationRepo(db).CreateReservation(context.Background(), &res); err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if res.ID != 15 {
		test.Fatalf("expected id 15, got %d", res.ID)
	}
	expectationsMet(test, mock)
}

func TestGetReservationLoadsSeats(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(15).
		WillReturnRows(sqlmock.NewRows(reservationColumnNames).AddRow(
			15, 4, 3, 2, "confirmed", 180.0, nil, []byte(`[{"first_name":"Lina","last_name":"Ali"}]`), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT reservation_id, seat_number FROM reservation_seats WHERE reservation_id IN (?)`)).
		WithArgs(15).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "seat_number"}).AddRow(15, 4).AddRow(15, 5))

	res, err := NewReservationRepo(db).GetReservation(context.Background(), 15)
	if err != nil {
		test.Fatalf("get reservation: %v", err)
	}
	if res.Status != model.StatusConfirmed || len(res.SeatNumbers) != 2 || res.SeatNumbers[1] != 5 {
		test.Fatalf("unexpected reservation: %+v", res)
	}
	if len(res.Dependents) != 1 || res.Dependents[0].FirstName != "Lina" || res.PaymentDeadline != nil {
		test.Fatalf("unexpected dependents or deadline: %+v", res)
	}
	expectationsMet(test, mock)
}

func TestGetReservationNotFound(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).WillReturnRows(sqlmock.NewRows(reservationColumnNames))

	_, err := NewReservationRepo(db).GetReservation(context.Background(), 15)

	if !errors.Is(err, service.ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestLockReservationSelectsForUpdate(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	deadline := now.Add(15 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(15).
		WillReturnRows(sqlmock.NewRows(reservationColumnNames).AddRow(
			15, 4, 3, 2, "pending", 200.0, deadline, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT reservation_id, seat_number FROM reservation_seats WHERE reservation_id IN (?)`)).
		WithArgs(15).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "seat_number"}).AddRow(15, 1).AddRow(15, 2))
	mock.ExpectCommit()

	var locked model.Reservation
	err := NewStore(db).WithTx(context.Background(), func(ctx context.Context, tx service.Store) error {
		var err error
		locked, err = tx.LockReservation(ctx, 15)
		return err
	})
	if err != nil {
		test.Fatalf("lock reservation: %v", err)
	}
	if locked.Status != model.StatusPending || len(locked.SeatNumbers) != 2 || locked.PaymentDeadline == nil {
		test.Fatalf("unexpected reservation: %+v", locked)
	}
	expectationsMet(test, mock)
}

func TestLockReservationNotFound(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).WillReturnRows(sqlmock.NewRows(reservationColumnNames))

	_, err := NewReservationRepo(db).LockReservation(context.Background(), 15)

	if !errors.Is(err, service.ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestMaxSeatNumberAndWaitlistCheck(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(seat_number), 0) FROM reservation_seats WHERE train_id = ?`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM reservations WHERE train_id = ? AND status = ?)`)).
		WithArgs(3, "waitlisted").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	repo := NewReservationRepo(db)
	highest, err := repo.MaxSeatNumber(context.Background(), 3)
	if err != nil || highest != 12 {
		test.Fatalf("expected 12, got %d (%v)", highest, err)
	}
	waiting, err := repo.HasReservationWithStatus(context.Background(), 3, model.StatusWaitlisted)
	if err != nil || !waiting {
		test.Fatalf("expected waitlist, got %v (%v)", waiting, err)
	}
	expectationsMet(test, mock)
}

func TestAddLoyaltyPointsReturnsBalance(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET loyalty_points = loyalty_points + ? WHERE id = ?`)).
		WithArgs(600.0, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT loyalty_points FROM users WHERE id = ?`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"loyalty_points"}).AddRow(10600.0))

	balance, err := NewPassengerRepo(db).AddLoyaltyPoints(context.Background(), 4, 600)
	if err != nil || balance != 10600 {
		test.Fatalf("expected 10600, got %.0f (%v)", balance, err)
	}
	expectationsMet(test, mock)
}

func TestWithTxCommitsOnSuccess(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = available_seats - ?`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewStore(db).WithTx(context.Background(), func(ctx context.Context, tx service.Store) error {
		return tx.ReserveSeats(ctx, 1, 1)
	})
	if err != nil {
		test.Fatalf("with tx: %v", err)
	}
	expectationsMet(test, mock)
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE trains SET available_seats = available_seats - ?`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	boom := errors.New("boom")

	err := NewStore(db).WithTx(context.Background(), func(ctx context.Context, tx service.Store) error {
		if err := tx.ReserveSeats(ctx, 1, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		test.Fatalf("expected boom, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestWithTxBeginFailureIsRetryable(test *testing.T) {
	test.Parallel()
	db, mock := newMock(test)
	mock.ExpectBegin().WillReturnError(mysql.ErrInvalidConn)

	err := NewStore(db).WithTx(context.Background(), func(context.Context, service.Store) error { return nil })
	if !errors.Is(err, service.ErrStorageUnavailable) {
		test.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	expectationsMet(test, mock)
}

func TestClassify(test *testing.T) {
	test.Parallel()
	other := errors.New("syntax")
	cases := []struct {
		in   error
		want error
	}{
		{in: sql.ErrNoRows, want: service.ErrNotFound},
		{in: &mysql.MySQLError{Number: 1062}, want: service.ErrDuplicate},
		{in: &mysql.MySQLError{Number: 1213}, want: service.ErrStorageUnavailable},
		{in: &mysql.MySQLError{Number: 1205}, want: service.ErrStorageUnavailable},
		{in: driver.ErrBadConn, want: service.ErrStorageUnavailable},
		{in: context.DeadlineExceeded, want: service.ErrStorageUnavailable},
		{in: other, want: other},
	}
	for _, testCase := range cases {
		if got := classify(testCase.in); !errors.Is(got, testCase.want) {
			test.Fatalf("classify(%v) = %v, want %v", testCase.in, got, testCase.want)
		}
	}
	if classify(nil) != nil {
		test.Fatalf("classify(nil) must be nil")
	}
}
