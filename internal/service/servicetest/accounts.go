package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// CreateTrain stores t with all seats free.
func (memory *Memory) CreateTrain(_ context.Context, train *model.Train) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if err := memory.failure("CreateTrain"); err != nil {
		return err
	}
	train.ID = memory.allocateID()
	train.AvailableSeats = train.TotalSeats
	if train.Status == "" {
		train.Status = model.TrainActive
	}
	memory.trains[train.ID] = *train
	return nil
}

// Trains returns every stored train ordered by departure time.
func (memory *Memory) Trains() []model.Train {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	out := make([]model.Train, 0, len(memory.trains))
	for _, train := range memory.trains {
		out = append(out, train)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureTime().Equal(out[j].DepartureTime()) {
			return out[i].DepartureTime().Before(out[j].DepartureTime())
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (memory *Memory) GetPassengerByEmail(_ context.Context, email string) (model.Passenger, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, passenger := range memory.passengers {
		if passenger.Email != nil && *passenger.Email == email {
			return passenger, nil
		}
	}
	return model.Passenger{}, fmt.Errorf("passenger %q: %w", email, service.ErrNotFound)
}

// RegisterPassenger stores a passenger with credentials.
func (memory *Memory) RegisterPassenger(_ context.Context, fields model.NewPassenger, passwordHash string) (model.Passenger, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(fields.Email))
	for _, passenger := range memory.passengers {
		if passenger.NationalID == fields.NationalID || (passenger.Email != nil && *passenger.Email == email) {
			return model.Passenger{}, fmt.Errorf("passenger %q: %w", fields.NationalID, service.ErrDuplicate)
		}
	}
	passenger := model.Passenger{
		ID:           memory.allocateID(),
		NationalID:   fields.NationalID,
		Email:        &email,
		PasswordHash: passwordHash,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Role:         model.RolePassenger,
		LoyaltyTier:  model.TierRegular,
	}
	memory.passengers[passenger.ID] = passenger
	return passenger, nil
}
