package service

import (
	"context"
	"sort"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// WaitlistEntry is one waitlisted reservation together with the tier its
// passenger holds right now.
type WaitlistEntry struct {
	Reservation   model.Reservation `json:"reservation"`
	PassengerName string            `json:"passenger_name"`
	Tier          model.LoyaltyTier `json:"tier"`
}

// WaitlistBuckets groups a train's waitlist by loyalty tier.  Each bucket is
// ordered by booking time, earliest first.
type WaitlistBuckets struct {
	Gold    []WaitlistEntry `json:"gold"`
	Silver  []WaitlistEntry `json:"silver"`
	Green   []WaitlistEntry `json:"green"`
	Regular []WaitlistEntry `json:"regular"`
}

// Ordered flattens the buckets into promotion priority order.
func (buckets WaitlistBuckets) Ordered() []WaitlistEntry {
	out := make([]WaitlistEntry, 0, buckets.Len())
	out = append(out, buckets.Gold...)
	out = append(out, buckets.Silver...)
	out = append(out, buckets.Green...)
	return append(out, buckets.Regular...)
}

// Len is the total number of waitlisted reservations.
func (buckets WaitlistBuckets) Len() int {
	return len(buckets.Gold) + len(buckets.Silver) + len(buckets.Green) + len(buckets.Regular)
}

// WaitlistResolver orders a train's waitlisted reservations for promotion.
// It only ranks them; promotion itself stays an explicit admin action.
type WaitlistResolver struct {
	reservations ReservationStore
	passengers   PassengerStore
}

// NewWaitlistResolver wires a WaitlistResolver over the given store.
func NewWaitlistResolver(store Store) *WaitlistResolver {
	return &WaitlistResolver{reservations: store, passengers: store}
}

// List returns the waitlist of a train bucketed by current passenger tier.
func (resolver *WaitlistResolver) List(ctx context.Context, trainID uint64) (WaitlistBuckets, error) {
	waiting, err := resolver.reservations.ListReservationsByTrain(ctx, trainID, model.StatusWaitlisted)
	if err != nil {
		return WaitlistBuckets{}, err
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		if waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].ID < waiting[j].ID
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})

	buckets := WaitlistBuckets{
		Gold:    []WaitlistEntry{},
		Silver:  []WaitlistEntry{},
		Green:   []WaitlistEntry{},
		Regular: []WaitlistEntry{},
	}
	passengers := make(map[uint64]model.Passenger)
	for _, reservation := range waiting {
		passenger, ok := passengers[reservation.PassengerID]
		if !ok {
			passenger, err = resolver.passengers.GetPassenger(ctx, reservation.PassengerID)
			if err != nil {
				return WaitlistBuckets{}, err
			}
			passengers[reservation.PassengerID] = passenger
		}
		entry := WaitlistEntry{
			Reservation:   reservation,
			PassengerName: passenger.FirstName + " " + passenger.LastName,
			Tier:          passenger.LoyaltyTier,
		}
		switch passenger.LoyaltyTier {
		case model.TierGold:
			buckets.Gold = append(buckets.Gold, entry)
		case model.TierSilver:
			buckets.Silver = append(buckets.Silver, entry)
		case model.TierGreen:
			buckets.Green = append(buckets.Green, entry)
		default:
			entry.Tier = model.TierRegular
			buckets.Regular = append(buckets.Regular, entry)
		}
	}
	return buckets, nil
}
