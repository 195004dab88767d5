package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/config"
	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
	"github.com/iliyamo/railway-reservation/internal/utils"
)

// PassengerAccounts is the account storage behind the auth endpoints.
type PassengerAccounts interface {
	GetPassenger(ctx context.Context, id uint64) (model.Passenger, error)
	GetPassengerByEmail(ctx context.Context, email string) (model.Passenger, error)
	RegisterPassenger(ctx context.Context, fields model.NewPassenger, passwordHash string) (model.Passenger, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts PassengerAccounts
	Now      func() time.Time
}

func NewAuthHandler(cfg config.Config, accounts PassengerAccounts) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Now: time.Now}
}

type registerReq struct {
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type profile struct {
	ID            uint64            `json:"id"`
	NationalID    string            `json:"national_id"`
	Email         string            `json:"email,omitempty"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Role          model.Role        `json:"role"`
	LoyaltyPoints float64           `json:"loyalty_points"`
	LoyaltyTier   model.LoyaltyTier `json:"loyalty_tier"`
}

type authResp struct {
	User   profile   `json:"user"`
	Access tokenPart `json:"access"`
}

func profileOf(p model.Passenger) profile {
	out := profile{
		ID:            p.ID,
		NationalID:    p.NationalID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Role:          p.Role,
		LoyaltyPoints: p.LoyaltyPoints,
		LoyaltyTier:   p.LoyaltyTier,
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	return out
}

// Register creates a passenger account and returns an access token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.NationalID == "" || req.FirstName == "" || req.LastName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "national_id, first_name, last_name and email are required"})
	}
	if len(req.Password) < utils.MinPasswordLength || len(req.Password) > 72 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be 8 to 72 bytes"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	p, err := h.Accounts.RegisterPassenger(ctx, model.NewPassenger{
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
	}, hash)
	if err != nil {
		if errors.Is(err, service.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or national id already registered"})
		}
		return writeError(c, err)
	}
	return h.issue(c, http.StatusCreated, p)
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Accounts.GetPassengerByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeError(c, err)
	}
	if p.PasswordHash == "" || !utils.VerifyPassword(p.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.issue(c, http.StatusOK, p)
}

// Me returns the caller's profile including loyalty points and tier.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	p, err := h.Accounts.GetPassenger(c.Request().Context(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profileOf(p))
}

func (h *AuthHandler) issue(c echo.Context, status int, p model.Passenger) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin, h.Now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, authResp{
		User:   profileOf(p),
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
