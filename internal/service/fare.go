package service

import "github.com/iliyamo/railway-reservation/internal/model"

var tierDiscounts = map[model.LoyaltyTier]float64{
	model.TierGold:    0.75,
	model.TierSilver:  0.90,
	model.TierGreen:   0.95,
	model.TierRegular: 1.00,
}

// DiscountFactor returns the price multiplier for a tier.  Unknown tiers
// pay full price.
func DiscountFactor(tier model.LoyaltyTier) float64 {
	if factor, ok := tierDiscounts[tier]; ok {
		return factor
	}
	return 1.00
}

// Fare computes the total cost of seatCount seats at seatPrice each for a
// passenger in the given tier.
func Fare(seatPrice float64, seatCount int, tier model.LoyaltyTier) float64 {
	return seatPrice * float64(seatCount) * DiscountFactor(tier)
}
