package model

// LoyaltyTier is one of the four fixed loyalty levels.
type LoyaltyTier string

const (
	TierRegular LoyaltyTier = "Regular"
	TierGreen   LoyaltyTier = "Green"
	TierSilver  LoyaltyTier = "Silver"
	TierGold    LoyaltyTier = "Gold"
)

// Point thresholds at which each tier starts.
const (
	GreenThreshold  = 10000
	SilverThreshold = 50000
	GoldThreshold   = 100000
)

// TierForPoints maps a point balance onto its tier.
func TierForPoints(points float64) LoyaltyTier {
	switch {
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	case points >= GreenThreshold:
		return TierGreen
	default:
		return TierRegular
	}
}

// ParseTier normalizes a stored tier string.  Unknown values are Regular.
func ParseTier(s string) LoyaltyTier {
	switch LoyaltyTier(s) {
	case TierGreen, TierSilver, TierGold:
		return LoyaltyTier(s)
	}
	return TierRegular
}
