package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

// BalanceService moves hours between the purchased, locked and consumed
// counters. Every move writes the counters, a ledger entry and an audit row in
// one transaction.
type BalanceService struct {
	store  repo.Store
	notify Notifier
}

func NewBalanceService(st repo.Store, n Notifier) *BalanceService {
	return &BalanceService{store: st, notify: n}
}

// In returns a BalanceService that joins the transaction tx.
func (s *BalanceService) In(tx repo.Store) *BalanceService {
	return &BalanceService{store: tx, notify: s.notify}
}

func (s *BalanceService) Current(ctx context.Context, userID, franchiseID string) (models.Balance, error) {
	return s.store.Balances().GetOrCreate(ctx, userID, franchiseID)
}

type movement struct {
	kind      models.LedgerKind
	hours     int64
	delta     models.BalanceDelta
	bookingID string
	paymentID string
	actorID   string
	note      string
}

func (s *BalanceService) move(ctx context.Context, userID, franchiseID string, m movement) (models.Balance, error) {
	var out models.Balance
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		b, err := tx.Balances().Apply(ctx, userID, franchiseID, m.delta)
		if err != nil {
			return err
		}
		_, err = tx.Ledger().Create(ctx, models.LedgerEntry{
			UserID:         userID,
			FranchiseID:    franchiseID,
			Kind:           m.kind,
			Hours:          m.hours,
			BookingID:      strPtr(m.bookingID),
			PaymentID:      strPtr(m.paymentID),
			Note:           m.note,
			PurchasedAfter: b.PurchasedHours,
			ConsumedAfter:  b.ConsumedHours,
			LockedAfter:    b.LockedHours,
		})
		if err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}
		details := map[string]any{"kind": m.kind, "hours": m.hours, "franchise_id": franchiseID}
		if m.bookingID != "" {
			details["booking_id"] = m.bookingID
		}
		if m.paymentID != "" {
			details["payment_id"] = m.paymentID
		}
		if err := audit(ctx, tx, "balance", userID, m.actorID, "ledger."+string(m.kind), details); err != nil {
			return err
		}
		out = b
		return nil
	})

	outcome := "ok"
	switch {
	case errors.Is(err, apperr.ErrInsufficientHours):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.LedgerOpsTotal.WithLabelValues(string(m.kind), outcome).Inc()
	return out, err
}

func positive(hours int64) error {
	if hours <= 0 {
		return apperr.Validation("hours must be greater than zero")
	}
	return nil
}

func (s *BalanceService) Purchase(ctx context.Context, userID, franchiseID string, hours int64, paymentID, note string) (models.Balance, error) {
	if err := positive(hours); err != nil {
		return models.Balance{}, err
	}
	return s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerPurchase, hours: hours, delta: models.BalanceDelta{Purchased: hours},
		paymentID: paymentID, note: note,
	})
}

func (s *BalanceService) Lock(ctx context.Context, userID, franchiseID string, hours int64, bookingID string) (models.Balance, error) {
	if err := positive(hours); err != nil {
		return models.Balance{}, err
	}
	return s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerLock, hours: hours, delta: models.BalanceDelta{Locked: hours}, bookingID: bookingID,
	})
}

func (s *BalanceService) Release(ctx context.Context, userID, franchiseID string, hours int64, bookingID string) (models.Balance, error) {
	if err := positive(hours); err != nil {
		return models.Balance{}, err
	}
	return s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerRelease, hours: -hours, delta: models.BalanceDelta{Locked: -hours}, bookingID: bookingID,
	})
}

func (s *BalanceService) Consume(ctx context.Context, userID, franchiseID string, hours int64, bookingID string) (models.Balance, error) {
	if err := positive(hours); err != nil {
		return models.Balance{}, err
	}
	return s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerConsume, hours: hours, delta: models.BalanceDelta{Locked: -hours, Consumed: hours}, bookingID: bookingID,
	})
}

func (s *BalanceService) Refund(ctx context.Context, userID, franchiseID string, hours int64, bookingID, note string) (models.Balance, error) {
	if err := positive(hours); err != nil {
		return models.Balance{}, err
	}
	return s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerRefund, hours: -hours, delta: models.BalanceDelta{Consumed: -hours},
		bookingID: bookingID, note: note,
	})
}

// Adjust corrects the purchased counter of a client by delta on behalf of an
// owner or admin.
func (s *BalanceService) Adjust(ctx context.Context, actor models.Actor, userID string, delta int64, note string) (models.Balance, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return models.Balance{}, err
	}
	if u.FranchiseID == nil || !actor.InFranchise(*u.FranchiseID) {
		return models.Balance{}, apperr.ErrNotFound
	}
	franchiseID := *u.FranchiseID
	if !actor.CanManage(franchiseID) {
		return models.Balance{}, apperr.ErrForbidden
	}
	if delta == 0 {
		return models.Balance{}, apperr.Validation("delta must not be zero")
	}
	b, err := s.move(ctx, userID, franchiseID, movement{
		kind: models.LedgerAdjust, hours: delta, delta: models.BalanceDelta{Purchased: delta},
		actorID: actor.UserID, note: note,
	})
	if err != nil {
		return models.Balance{}, err
	}
	if s.notify != nil {
		s.notify.Notify(ctx, models.Notification{
			UserID:      userID,
			FranchiseID: franchiseRef(franchiseID),
			Kind:        models.NotifyBalanceAdjusted,
			Title:       "Balance adjusted",
			Body:        fmt.Sprintf("Your purchased hours changed by %+d.", delta),
			Data:        map[string]any{"delta": delta, "available": b.Available(), "note": note},
		})
	}
	return b, nil
}

func (s *BalanceService) History(ctx context.Context, userID, franchiseID string, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.Ledger().ListByUser(ctx, userID, franchiseID, limit, offset)
}

// Visible returns the balance of userID when the actor may see it.
func (s *BalanceService) Visible(ctx context.Context, actor models.Actor, userID string) (models.Balance, error) {
	fid, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return models.Balance{}, err
	}
	return s.Current(ctx, userID, fid)
}

func (s *BalanceService) VisibleHistory(ctx context.Context, actor models.Actor, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	fid, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	return s.History(ctx, userID, fid, limit, offset)
}

// authorize lets users read their own balance and managers read their
// franchise's balances. Anything else looks like a missing user.
func (s *BalanceService) authorize(ctx context.Context, actor models.Actor, userID string) (string, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.FranchiseID == nil {
		return "", apperr.ErrNotFound
	}
	fid := *u.FranchiseID
	if actor.UserID == userID || actor.CanManage(fid) {
		return fid, nil
	}
	if actor.Role == models.RoleTrainer && actor.FranchiseID == fid {
		return fid, nil
	}
	return "", apperr.ErrNotFound
}
