package model

import "time"

// Role is the account role stored on the users table.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleAdmin     Role = "admin"
	RoleDriver    Role = "driver"
	RoleEngineer  Role = "engineer"
)

// Passenger represents a user record as stored in the `users` table.
// Passengers created by an admin on someone's behalf may have no email
// and no password hash.
//
// Fields:
//
//	ID            – primary key identifier of the user.
//	NationalID    – unique national identity number.
//	Email         – unique email address (optional).
//	PasswordHash  – bcrypt hashed password (optional).
//	FirstName     – given name.
//	LastName      – family name.
//	Role          – passenger, admin, driver or engineer.
//	LoyaltyPoints – accrued loyalty points, never decremented.
//	LoyaltyTier   – tier derived from LoyaltyPoints.
//	CreatedAt     – timestamp of creation.
type Passenger struct {
	ID            uint64      // users.id
	NationalID    string      // users.national_id
	Email         *string     // users.email (nullable)
	PasswordHash  string      // users.password_hash
	FirstName     string      // users.first_name
	LastName      string      // users.last_name
	Role          Role        // users.role
	LoyaltyPoints float64     // users.loyalty_points
	LoyaltyTier   LoyaltyTier // users.loyalty_tier
	CreatedAt     time.Time   // users.created_at
}

// NewPassenger carries the identity fields needed to create a passenger
// record when an admin books for someone who has no account yet.
type NewPassenger struct {
	NationalID string
	FirstName  string
	LastName   string
	Email      string
}

// Actor identifies who performs a reservation operation.
type Actor struct {
	UserID uint64
	Role   Role
}

// IsAdmin reports whether the actor acts with admin privileges.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
