// Package utils holds the credential helpers: bcrypt password hashing and
// HS256 access tokens.
package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token string    `json:"access_token"`
	Exp   time.Time `json:"expires_at"`
}

// Claims carries the caller's identity: sub is the user id, role the
// account role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewAccessToken signs an HS256 token for the user valid for ttlMin
// minutes from now.
func NewAccessToken(secret string, userID uint64, role model.Role, ttlMin int, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw and returns the actor it was issued to.
// Only HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (model.Actor, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return model.Actor{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || claims.Role == "" {
		return model.Actor{}, ErrInvalidToken
	}
	return model.Actor{UserID: id, Role: model.Role(claims.Role)}, nil
}
