package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
	BookingRefunded  BookingStatus = "refunded"
)

// Holds reports whether hours are still locked for a booking in this status.
func (s BookingStatus) Holds() bool {
	return s == BookingPending || s == BookingConfirmed
}

type Booking struct {
	ID            string        `json:"id"`
	FranchiseID   string        `json:"franchise_id"`
	ClientID      string        `json:"client_id"`
	TrainerID     string        `json:"trainer_id"`
	StartsAt      time.Time     `json:"starts_at"`
	EndsAt        time.Time     `json:"ends_at"`
	Hours         int64         `json:"hours"`
	Status        BookingStatus `json:"status"`
	LockExpiresAt *time.Time    `json:"lock_expires_at,omitempty"`
	Note          string        `json:"note,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartsAt.Before(end) && start.Before(b.EndsAt)
}

func (b Booking) LockExpired(now time.Time) bool {
	return b.Status == BookingPending && b.LockExpiresAt != nil && !b.LockExpiresAt.After(now)
}

type BookingFilter struct {
	FranchiseID string
	ClientID    string
	TrainerID   string
	Status      BookingStatus
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
