package service_test

import (
	"context"
	"testing"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
	"github.com/iliyamo/railway-reservation/internal/service/servicetest"
)

func TestAddPointsPromotesTier(test *testing.T) {
	test.Parallel()
	store := servicetest.NewMemory()
	passenger := store.AddPassenger(model.Passenger{NationalID: "100", LoyaltyPoints: 9500})
	ledger := service.NewLoyaltyLedger(store)

	tier, err := ledger.AddPoints(context.Background(), passenger.ID, 600)
	if err != nil {
		test.Fatalf("add points: %v", err)
	}
	if tier != model.TierGreen {
		test.Fatalf("expected Green, got %s", tier)
	}
	stored := store.Passenger(passenger.ID)
	if stored.LoyaltyPoints != 10100 || stored.LoyaltyTier != model.TierGreen {
		test.Fatalf("unexpected passenger state: %+v", stored)
	}
}

func TestAddZeroPointsKeepsTier(test *testing.T) {
	test.Parallel()
	store := servicetest.NewMemory()
	ledger := service.NewLoyaltyLedger(store)
	for _, points := range []float64{0, 10000, 50000, 100000, 250000} {
		passenger := store.AddPassenger(model.Passenger{LoyaltyPoints: points, LoyaltyTier: model.TierForPoints(points)})
		tier, err := ledger.AddPoints(context.Background(), passenger.ID, 0)
		if err != nil {
			test.Fatalf("add points: %v", err)
		}
		if tier != passenger.LoyaltyTier {
			test.Fatalf("points %.0f: tier moved from %s to %s", points, passenger.LoyaltyTier, tier)
		}
	}
}

func TestAddNegativePointsIsIgnored(test *testing.T) {
	test.Parallel()
	store := servicetest.NewMemory()
	passenger := store.AddPassenger(model.Passenger{LoyaltyPoints: 60000, LoyaltyTier: model.TierSilver})
	if _, err := service.NewLoyaltyLedger(store).AddPoints(context.Background(), passenger.ID, -20000); err != nil {
		test.Fatalf("add points: %v", err)
	}
	if got := store.Passenger(passenger.ID).LoyaltyPoints; got != 60000 {
		test.Fatalf("expected balance unchanged, got %.0f", got)
	}
}

func TestTierThresholds(test *testing.T) {
	test.Parallel()
	cases := map[float64]model.LoyaltyTier{
		0:      model.TierRegular,
		9999:   model.TierRegular,
		10000:  model.TierGreen,
		49999:  model.TierGreen,
		50000:  model.TierSilver,
		99999:  model.TierSilver,
		100000: model.TierGold,
	}
	for points, expected := range cases {
		if got := model.TierForPoints(points); got != expected {
			test.Fatalf("points %.0f: expected %s, got %s", points, expected, got)
		}
	}
}
