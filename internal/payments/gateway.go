// Package payments talks to the hosted checkout provider and decodes its webhooks.
package payments

import "context"

type CheckoutRequest struct {
	PaymentID     string
	CustomerEmail string
	ProductName   string
	AmountMinor   int64
	Currency      string
}

type Session struct {
	ID  string
	URL string
}

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	EventPaymentIntentFailed = "payment_intent.payment_failed"
)

// WebhookEvent is the provider-neutral view of a verified webhook.
type WebhookEvent struct {
	ID        string
	Type      string
	PaymentID string
	SessionID string
}

type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
