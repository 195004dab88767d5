package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// PassengerRepo reads and writes the users table.  Admin-created passengers
// have neither email nor password.
type PassengerRepo struct {
	q querier
}

// NewPassengerRepo returns a PassengerRepo bound to db or a transaction.
func NewPassengerRepo(q querier) *PassengerRepo { return &PassengerRepo{q: q} }

const passengerColumns = `id, national_id, email, password_hash, first_name, last_name, role,
	loyalty_points, loyalty_tier, created_at`

func scanPassenger(row rowScanner) (model.Passenger, error) {
	var (
		p     model.Passenger
		email sql.NullString
		hash  sql.NullString
		tier  string
	)
	err := row.Scan(&p.ID, &p.NationalID, &email, &hash, &p.FirstName, &p.LastName, &p.Role,
		&p.LoyaltyPoints, &tier, &p.CreatedAt)
	if err != nil {
		return model.Passenger{}, err
	}
	if email.Valid {
		e := email.String
		p.Email = &e
	}
	p.PasswordHash = hash.String
	p.LoyaltyTier = model.ParseTier(tier)
	return p, nil
}

func (r *PassengerRepo) getBy(ctx context.Context, column string, value any) (model.Passenger, error) {
	p, err := scanPassenger(r.q.QueryRowContext(ctx,
		`SELECT `+passengerColumns+` FROM users WHERE `+column+` = ? LIMIT 1`, value))
	if err != nil {
		return model.Passenger{}, classify(err)
	}
	return p, nil
}

// GetPassenger loads a passenger by id.
func (r *PassengerRepo) GetPassenger(ctx context.Context, id uint64) (model.Passenger, error) {
	return r.getBy(ctx, "id", id)
}

// GetPassengerByNationalID loads a passenger by national id.
func (r *PassengerRepo) GetPassengerByNationalID(ctx context.Context, nationalID string) (model.Passenger, error) {
	return r.getBy(ctx, "national_id", strings.TrimSpace(nationalID))
}

// GetPassengerByEmail loads a passenger by normalized email.
func (r *PassengerRepo) GetPassengerByEmail(ctx context.Context, email string) (model.Passenger, error) {
	return r.getBy(ctx, "email", normalizeEmail(email))
}

// CreatePassenger inserts a passenger without credentials.
func (r *PassengerRepo) CreatePassenger(ctx context.Context, fields model.NewPassenger) (model.Passenger, error) {
	return r.insert(ctx, fields, "", model.RolePassenger)
}

// RegisterPassenger inserts a passenger with login credentials.  A taken
// email or national id yields service.ErrDuplicate.
func (r *PassengerRepo) RegisterPassenger(ctx context.Context, fields model.NewPassenger, passwordHash string) (model.Passenger, error) {
	return r.insert(ctx, fields, passwordHash, model.RolePassenger)
}

func (r *PassengerRepo) insert(ctx context.Context, fields model.NewPassenger, passwordHash string, role model.Role) (model.Passenger, error) {
	var email, hash sql.NullString
	if e := normalizeEmail(fields.Email); e != "" {
		email = sql.NullString{String: e, Valid: true}
	}
	if passwordHash != "" {
		hash = sql.NullString{String: passwordHash, Valid: true}
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (national_id, email, password_hash, first_name, last_name, role, loyalty_points, loyalty_tier)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		strings.TrimSpace(fields.NationalID), email, hash,
		strings.TrimSpace(fields.FirstName), strings.TrimSpace(fields.LastName), role, model.TierRegular)
	if err != nil {
		return model.Passenger{}, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Passenger{}, classify(err)
	}
	return r.GetPassenger(ctx, uint64(id))
}

// AddLoyaltyPoints adds amount in place and returns the new balance.
func (r *PassengerRepo) AddLoyaltyPoints(ctx context.Context, id uint64, amount float64) (float64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE users SET loyalty_points = loyalty_points + ? WHERE id = ?`, amount, id)
	if err != nil {
		return 0, classify(err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return 0, classify(err)
	} else if affected == 0 {
		return 0, notFound("passenger", id)
	}
	var balance float64
	if err := r.q.QueryRowContext(ctx, `SELECT loyalty_points FROM users WHERE id = ?`, id).Scan(&balance); err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

// SetLoyaltyTier stores the passenger's tier.
func (r *PassengerRepo) SetLoyaltyTier(ctx context.Context, id uint64, tier model.LoyaltyTier) error {
	res, err := r.q.ExecContext(ctx, `UPDATE users SET loyalty_tier = ? WHERE id = ?`, tier, id)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return notFound("passenger", id)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
