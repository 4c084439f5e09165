package models

import "time"

// Balance holds the hour counters of one client inside one franchise.
// Invariant: consumed + locked <= purchased, all counters >= 0.
type Balance struct {
	UserID         string    `json:"user_id"`
	FranchiseID    string    `json:"franchise_id"`
	PurchasedHours int64     `json:"purchased_hours"`
	ConsumedHours  int64     `json:"consumed_hours"`
	LockedHours    int64     `json:"locked_hours"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (b Balance) Available() int64 {
	return b.PurchasedHours - b.ConsumedHours - b.LockedHours
}

// BalanceDelta is applied atomically to the three counters.
type BalanceDelta struct {
	Purchased int64
	Consumed  int64
	Locked    int64
}

// Apply returns the balance after d, and false when the result breaks the invariant.
func (b Balance) Apply(d BalanceDelta) (Balance, bool) {
	b.PurchasedHours += d.Purchased
	b.ConsumedHours += d.Consumed
	b.LockedHours += d.Locked
	if b.PurchasedHours < 0 || b.ConsumedHours < 0 || b.LockedHours < 0 {
		return b, false
	}
	return b, b.Available() >= 0
}
