package models

import "time"

type Package struct {
	ID          string    `json:"id"`
	FranchiseID string    `json:"franchise_id"`
	Name        string    `json:"name"`
	Hours       int64     `json:"hours"`
	PriceMinor  int64     `json:"price_minor"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

type Payment struct {
	ID          string        `json:"id"`
	FranchiseID string        `json:"franchise_id"`
	UserID      string        `json:"user_id"`
	PackageID   string        `json:"package_id"`
	Hours       int64         `json:"hours"`
	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	Provider    string        `json:"provider"`
	ProviderRef string        `json:"provider_ref,omitempty"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
