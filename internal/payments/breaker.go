package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
)

type BreakerSettings struct {
	// MinRequests inside Interval before the failure ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MinRequests: 5, FailureRatio: 0.6, Interval: time.Minute, OpenTimeout: 30 * time.Second}
}

// Breaker guards the checkout call of a Gateway with a circuit breaker.
// Webhook parsing is local work and bypasses it.
type Breaker struct {
	Gateway
	cb *gobreaker.CircuitBreaker
}

func WithBreaker(g Gateway, s BreakerSettings) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payments-" + g.Name(),
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= s.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.GatewayBreakerState.Set(float64(to))
		},
	})
	return &Breaker{Gateway: g, cb: cb}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.Gateway.CreateCheckout(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Session{}, apperr.ErrGatewayUnavailable.Wrap(err)
		}
		return Session{}, apperr.Unavailable("payment provider error", err)
	}
	return res.(Session), nil
}
