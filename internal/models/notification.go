package models

import "time"

const (
	NotifyBookingRequested = "booking.requested"
	NotifyBookingConfirmed = "booking.confirmed"
	NotifyBookingCancelled = "booking.cancelled"
	NotifyBookingCompleted = "booking.completed"
	NotifyBookingExpired   = "booking.expired"
	NotifyBookingRefunded  = "booking.refunded"
	NotifyPaymentSucceeded = "payment.succeeded"
	NotifyBalanceAdjusted  = "balance.adjusted"
)

type Notification struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	FranchiseID *string        `json:"franchise_id,omitempty"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
