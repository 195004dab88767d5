package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/railway-reservation/internal/service"
)

// querier is the part of *sql.DB and *sql.Tx the repositories use, so each
// repository runs unchanged inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the three repositories into a service.Store.  A Store
// returned by NewStore talks to the pool; the one handed to WithTx
// callbacks is bound to the transaction.
type Store struct {
	*TrainRepo
	*PassengerRepo
	*ReservationRepo

	db *sql.DB
	tx *sql.Tx
}

var _ service.Store = (*Store)(nil)

// NewStore returns a pool-backed Store.
func NewStore(db *sql.DB) *Store {
	return newStore(db, nil, db)
}

func newStore(db *sql.DB, tx *sql.Tx, q querier) *Store {
	return &Store{
		TrainRepo:       &TrainRepo{q: q},
		PassengerRepo:   &PassengerRepo{q: q},
		ReservationRepo: &ReservationRepo{q: q},
		db:              db,
		tx:              tx,
	}
}

// WithTx runs fn inside a READ COMMITTED transaction and commits when fn
// returns nil.  Reads issued after a row lock see rows committed by the
// previous lock holder.  Called on a transaction-bound Store it joins the
// running transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx service.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, newStore(s.db, tx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}
