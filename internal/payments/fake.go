package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Fake hands out local checkout sessions and accepts webhooks signed the
// Stripe way with WebhookSecret, so the whole flow runs without a provider.
type Fake struct {
	BaseURL       string
	WebhookSecret string

	mu       sync.Mutex
	failWith error
	sessions []CheckoutRequest
}

func NewFake(baseURL, webhookSecret string) *Fake {
	return &Fake{BaseURL: baseURL, WebhookSecret: webhookSecret}
}

func (f *Fake) Name() string { return "fake" }

// FailWith makes every CreateCheckout call return err until reset with nil.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *Fake) Sessions() []CheckoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CheckoutRequest(nil), f.sessions...)
}

func (f *Fake) CreateCheckout(_ context.Context, req CheckoutRequest) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return Session{}, f.failWith
	}
	f.sessions = append(f.sessions, req)
	id := "cs_fake_" + uuid.NewString()
	return Session{ID: id, URL: f.BaseURL + "?session_id=" + id}, nil
}

func (f *Fake) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	return parseStripeEvent(payload, signature, f.WebhookSecret)
}
