package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/payments"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

type PaymentService struct {
	store    repo.Store
	gateway  payments.Gateway
	balances *BalanceService
	notify   Notifier
}

func NewPaymentService(st repo.Store, gw payments.Gateway, b *BalanceService, n Notifier) *PaymentService {
	return &PaymentService{store: st, gateway: gw, balances: b, notify: n}
}

type PackageInput struct {
	FranchiseID string
	Name        string
	Hours       int64
	Price       string
	Currency    string
}

var hundred = decimal.NewFromInt(100)

// priceMinor converts a decimal amount such as "49.99" into minor units.
func priceMinor(price string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return 0, apperr.Validation("price must be a decimal amount")
	}
	if !d.IsPositive() {
		return 0, apperr.Validation("price must be greater than zero")
	}
	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, apperr.Validation("price has more than two decimal places")
	}
	return minor.IntPart(), nil
}

func (s *PaymentService) CreatePackage(ctx context.Context, actor models.Actor, in PackageInput) (models.Package, error) {
	if in.FranchiseID == "" {
		in.FranchiseID = actor.FranchiseID
	}
	if !actor.CanManage(in.FranchiseID) {
		return models.Package{}, apperr.ErrForbidden
	}
	if in.Hours <= 0 {
		return models.Package{}, apperr.Validation("hours must be greater than zero")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Package{}, apperr.Validation("name is required")
	}
	cur := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(cur) != 3 {
		return models.Package{}, apperr.Validation("currency must be a 3 letter ISO code")
	}
	amount, err := priceMinor(in.Price)
	if err != nil {
		return models.Package{}, err
	}
	if _, err := s.store.Franchises().GetByID(ctx, in.FranchiseID); err != nil {
		return models.Package{}, err
	}

	var out models.Package
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		p, err := tx.Packages().Create(ctx, models.Package{
			FranchiseID: in.FranchiseID, Name: name, Hours: in.Hours,
			PriceMinor: amount, Currency: cur, Active: true,
		})
		if err != nil {
			return err
		}
		out = p
		return audit(ctx, tx, "package", p.ID, actor.UserID, "created", map[string]any{
			"hours": p.Hours, "price_minor": p.PriceMinor, "currency": p.Currency,
		})
	})
	return out, err
}

func (s *PaymentService) ListPackages(ctx context.Context, actor models.Actor, franchiseID string) ([]models.Package, error) {
	if franchiseID == "" || !actor.IsAdmin() {
		franchiseID = actor.FranchiseID
	}
	if franchiseID == "" {
		return nil, apperr.Validation("franchise_id is required")
	}
	return s.store.Packages().ListActive(ctx, franchiseID)
}

func (s *PaymentService) ArchivePackage(ctx context.Context, actor models.Actor, id string) error {
	p, err := s.store.Packages().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.InFranchise(p.FranchiseID) {
		return apperr.ErrNotFound
	}
	if !actor.CanManage(p.FranchiseID) {
		return apperr.ErrForbidden
	}
	return s.store.WithTx(ctx, func(tx repo.Store) error {
		if err := tx.Packages().SetActive(ctx, id, false); err != nil {
			return err
		}
		return audit(ctx, tx, "package", id, actor.UserID, "archived", nil)
	})
}

// Checkout opens a hosted checkout session for the package. The payment stays
// pending until the provider reports the session as completed.
func (s *PaymentService) Checkout(ctx context.Context, actor models.Actor, packageID string) (models.Payment, error) {
	if actor.Role != models.RoleClient {
		return models.Payment{}, apperr.Forbidden("only clients can buy packages")
	}
	pkg, err := s.store.Packages().GetByID(ctx, packageID)
	if err != nil {
		return models.Payment{}, err
	}
	if pkg.FranchiseID != actor.FranchiseID || !pkg.Active {
		return models.Payment{}, apperr.ErrNotFound
	}
	user, err := s.store.Users().GetByID(ctx, actor.UserID)
	if err != nil {
		return models.Payment{}, err
	}

	var p models.Payment
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		var err error
		p, err = tx.Payments().Create(ctx, models.Payment{
			FranchiseID: pkg.FranchiseID, UserID: actor.UserID, PackageID: pkg.ID,
			Hours: pkg.Hours, AmountMinor: pkg.PriceMinor, Currency: pkg.Currency,
			Status: models.PaymentPending, Provider: s.gateway.Name(),
		})
		if err != nil {
			return err
		}
		return audit(ctx, tx, "payment", p.ID, actor.UserID, "created", map[string]any{"package_id": pkg.ID})
	})
	if err != nil {
		return models.Payment{}, err
	}
	metrics.PaymentsTotal.WithLabelValues(string(models.PaymentPending)).Inc()

	sess, err := s.gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		PaymentID:     p.ID,
		CustomerEmail: user.Email,
		ProductName:   pkg.Name,
		AmountMinor:   pkg.PriceMinor,
		Currency:      pkg.Currency,
	})
	if err != nil {
		if uerr := s.store.Payments().UpdateStatus(ctx, p.ID, models.PaymentFailed); uerr != nil {
			slog.ErrorContext(ctx, "mark payment failed", "payment_id", p.ID, "err", uerr)
		}
		metrics.PaymentsTotal.WithLabelValues(string(models.PaymentFailed)).Inc()
		return models.Payment{}, err
	}
	if err := s.store.Payments().SetCheckout(ctx, p.ID, sess.ID, sess.URL); err != nil {
		return models.Payment{}, err
	}
	p.ProviderRef, p.CheckoutURL = sess.ID, sess.URL
	return p, nil
}

// HandleWebhook verifies and applies one provider event. A returned error of
// kind internal asks the provider to deliver the event again.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues("unknown", "rejected").Inc()
		return err
	}
	log := slog.With("event_id", ev.ID, "type", ev.Type, "payment_id", ev.PaymentID)

	switch ev.Type {
	case payments.EventCheckoutCompleted:
		err = s.markPaid(ctx, ev)
	case payments.EventCheckoutExpired:
		err = s.settle(ctx, ev.PaymentID, models.PaymentExpired)
	case payments.EventAsyncPaymentFailed, payments.EventPaymentIntentFailed:
		err = s.settle(ctx, ev.PaymentID, models.PaymentFailed)
	default:
		metrics.WebhooksTotal.WithLabelValues(ev.Type, "ignored").Inc()
		return nil
	}

	if errors.Is(err, apperr.ErrNotFound) {
		log.WarnContext(ctx, "webhook for unknown payment")
		metrics.WebhooksTotal.WithLabelValues(ev.Type, "ignored").Inc()
		return nil
	}
	if err != nil {
		log.ErrorContext(ctx, "webhook processing failed", "err", err)
		metrics.WebhooksTotal.WithLabelValues(ev.Type, "error").Inc()
		return err
	}
	metrics.WebhooksTotal.WithLabelValues(ev.Type, "ok").Inc()
	return nil
}

// markPaid flips the payment to paid and credits the hours in one
// transaction, so a crash between the two cannot lose the credit. A failed
// credit leaves the payment pending for the provider's redelivery.
func (s *PaymentService) markPaid(ctx context.Context, ev payments.WebhookEvent) error {
	if ev.PaymentID == "" {
		return apperr.ErrNotFound
	}
	var (
		p       models.Payment
		b       models.Balance
		already bool
	)
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		var err error
		if p, err = tx.Payments().GetForUpdate(ctx, ev.PaymentID); err != nil {
			return err
		}
		if p.Status == models.PaymentPaid {
			already = true
			return nil
		}
		if err := tx.Payments().UpdateStatus(ctx, p.ID, models.PaymentPaid); err != nil {
			return err
		}
		if b, err = s.balances.In(tx).Purchase(ctx, p.UserID, p.FranchiseID, p.Hours, p.ID, "package purchase"); err != nil {
			return &creditError{err}
		}
		return audit(ctx, tx, "payment", p.ID, "", "paid", map[string]any{"event_id": ev.ID, "session_id": ev.SessionID})
	})
	var ce *creditError
	if errors.As(err, &ce) {
		if aerr := audit(ctx, s.store, "payment", p.ID, "", "credit_failed", map[string]any{"event_id": ev.ID, "error": ce.err.Error()}); aerr != nil {
			slog.ErrorContext(ctx, "audit credit failure", "payment_id", p.ID, "err", aerr)
		}
		return apperr.Internal("purchase failed", ce.err)
	}
	if err != nil || already {
		return err
	}
	metrics.PaymentsTotal.WithLabelValues(string(models.PaymentPaid)).Inc()

	if s.notify != nil {
		s.notify.Notify(ctx, models.Notification{
			UserID:      p.UserID,
			FranchiseID: franchiseRef(p.FranchiseID),
			Kind:        models.NotifyPaymentSucceeded,
			Title:       "Payment received",
			Body:        fmt.Sprintf("%d hour(s) were added to your balance.", p.Hours),
			Data:        map[string]any{"payment_id": p.ID, "hours": p.Hours, "available": b.Available()},
		})
	}
	return nil
}

type creditError struct{ err error }

func (e *creditError) Error() string { return "credit hours: " + e.err.Error() }
func (e *creditError) Unwrap() error { return e.err }

// settle records a terminal failure status. A paid payment is never downgraded.
func (s *PaymentService) settle(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	if paymentID == "" {
		return apperr.ErrNotFound
	}
	changed := false
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		p, err := tx.Payments().GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == models.PaymentPaid || p.Status == status {
			return nil
		}
		if err := tx.Payments().UpdateStatus(ctx, p.ID, status); err != nil {
			return err
		}
		changed = true
		return audit(ctx, tx, "payment", p.ID, "", string(status), nil)
	})
	if changed {
		metrics.PaymentsTotal.WithLabelValues(string(status)).Inc()
	}
	return err
}

func (s *PaymentService) ListPayments(ctx context.Context, actor models.Actor, franchiseID string, limit, offset int) ([]models.Payment, error) {
	limit, offset = clampPage(limit, offset)
	switch {
	case actor.IsAdmin():
		if franchiseID == "" {
			return nil, apperr.Validation("franchise_id is required")
		}
		return s.store.Payments().ListByFranchise(ctx, franchiseID, limit, offset)
	case actor.Role == models.RoleOwner:
		return s.store.Payments().ListByFranchise(ctx, actor.FranchiseID, limit, offset)
	default:
		return s.store.Payments().ListByUser(ctx, actor.UserID, limit, offset)
	}
}
