package service

import (
	"context"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// LoyaltyLedger accrues points on passengers.  Points only ever go up.
type LoyaltyLedger struct {
	passengers PassengerStore
}

// NewLoyaltyLedger wires a LoyaltyLedger over the given store.
func NewLoyaltyLedger(store PassengerStore) *LoyaltyLedger {
	return &LoyaltyLedger{passengers: store}
}

// AddPoints adds amount to the passenger's balance and stores the tier the
// new balance maps to.
func (ledger *LoyaltyLedger) AddPoints(ctx context.Context, passengerID uint64, amount float64) (model.LoyaltyTier, error) {
	if amount < 0 {
		amount = 0
	}
	balance, err := ledger.passengers.AddLoyaltyPoints(ctx, passengerID, amount)
	if err != nil {
		return "", err
	}
	tier := model.TierForPoints(balance)
	if err := ledger.passengers.SetLoyaltyTier(ctx, passengerID, tier); err != nil {
		return "", err
	}
	return tier, nil
}
