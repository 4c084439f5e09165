package models

import "time"

type LedgerKind string

const (
	LedgerPurchase LedgerKind = "purchase"
	LedgerLock     LedgerKind = "lock"
	LedgerRelease  LedgerKind = "release"
	LedgerConsume  LedgerKind = "consume"
	LedgerRefund   LedgerKind = "refund"
	LedgerAdjust   LedgerKind = "adjust"
)

type LedgerEntry struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FranchiseID    string     `json:"franchise_id"`
	Kind           LedgerKind `json:"kind"`
	Hours          int64      `json:"hours"`
	BookingID      *string    `json:"booking_id,omitempty"`
	PaymentID      *string    `json:"payment_id,omitempty"`
	Note           string     `json:"note,omitempty"`
	PurchasedAfter int64      `json:"purchased_after"`
	ConsumedAfter  int64      `json:"consumed_after"`
	LockedAfter    int64      `json:"locked_after"`
	CreatedAt      time.Time  `json:"created_at"`
}
