package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

const maxBookingHours = 8

type BookingService struct {
	store    repo.Store
	balances *BalanceService
	notify   Notifier
	clock    clockwork.Clock
	lockTTL  time.Duration
}

func NewBookingService(st repo.Store, b *BalanceService, n Notifier, clock clockwork.Clock, lockTTL time.Duration) *BookingService {
	return &BookingService{store: st, balances: b, notify: n, clock: clock, lockTTL: lockTTL}
}

type CreateBookingInput struct {
	TrainerID string
	StartsAt  time.Time
	EndsAt    time.Time
	Note      string
}

func (in CreateBookingInput) hours(now time.Time) (int64, error) {
	if !in.EndsAt.After(in.StartsAt) {
		return 0, apperr.Validation("ends_at must be after starts_at")
	}
	if !in.StartsAt.After(now) {
		return 0, apperr.Validation("starts_at must be in the future")
	}
	d := in.EndsAt.Sub(in.StartsAt)
	if d%time.Hour != 0 {
		return 0, apperr.Validation("bookings must last a whole number of hours")
	}
	h := int64(d / time.Hour)
	if h < 1 || h > maxBookingHours {
		return 0, apperr.Validation(fmt.Sprintf("bookings last between 1 and %d hours", maxBookingHours))
	}
	return h, nil
}

// Create holds the client's hours for a new pending booking with the trainer.
func (s *BookingService) Create(ctx context.Context, actor models.Actor, in CreateBookingInput) (models.Booking, error) {
	if actor.Role != models.RoleClient {
		return models.Booking{}, apperr.Forbidden("only clients can book sessions")
	}
	now := s.clock.Now().UTC()
	hours, err := in.hours(now)
	if err != nil {
		return models.Booking{}, err
	}
	trainer, err := s.store.Users().GetByID(ctx, in.TrainerID)
	if err != nil {
		return models.Booking{}, err
	}
	if trainer.FranchiseID == nil || *trainer.FranchiseID != actor.FranchiseID {
		return models.Booking{}, apperr.ErrNotFound
	}
	if trainer.Role != models.RoleTrainer {
		return models.Booking{}, apperr.Validation("user is not a trainer")
	}

	var out models.Booking
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		if err := tx.Bookings().LockTrainer(ctx, trainer.ID); err != nil {
			return err
		}
		busy, err := tx.Bookings().HasOverlap(ctx, trainer.ID, in.StartsAt.UTC(), in.EndsAt.UTC())
		if err != nil {
			return err
		}
		if busy {
			return apperr.ErrBookingOverlap
		}
		expires := now.Add(s.lockTTL)
		b, err := tx.Bookings().Create(ctx, models.Booking{
			FranchiseID:   actor.FranchiseID,
			ClientID:      actor.UserID,
			TrainerID:     trainer.ID,
			StartsAt:      in.StartsAt.UTC(),
			EndsAt:        in.EndsAt.UTC(),
			Hours:         hours,
			Status:        models.BookingPending,
			LockExpiresAt: &expires,
			Note:          in.Note,
		})
		if err != nil {
			return err
		}
		if _, err := s.balances.In(tx).Lock(ctx, actor.UserID, actor.FranchiseID, hours, b.ID); err != nil {
			return err
		}
		out = b
		return audit(ctx, tx, "booking", b.ID, actor.UserID, "created", map[string]any{
			"trainer_id": trainer.ID, "hours": hours, "lock_expires_at": expires,
		})
	})
	if err != nil {
		return models.Booking{}, err
	}

	metrics.BookingsTotal.WithLabelValues(string(models.BookingPending)).Inc()
	s.tell(ctx, out.TrainerID, out, models.NotifyBookingRequested, "New booking request",
		fmt.Sprintf("A client requested %d hour(s) starting %s.", out.Hours, out.StartsAt.Format(time.RFC3339)))
	return out, nil
}

func (s *BookingService) Confirm(ctx context.Context, actor models.Actor, id string) (models.Booking, error) {
	b, err := s.transition(ctx, actor, id, "confirmed", func(tx repo.Store, b models.Booking) (models.Booking, error) {
		if !isTrainerOf(actor, b) && !actor.CanManage(b.FranchiseID) {
			return b, apperr.Forbidden("only the trainer can confirm")
		}
		if b.Status != models.BookingPending {
			return b, apperr.ErrInvalidTransition
		}
		if b.LockExpired(s.clock.Now()) {
			return b, apperr.ErrLockExpired
		}
		return tx.Bookings().UpdateStatus(ctx, b.ID, models.BookingConfirmed, nil)
	})
	if err != nil {
		return models.Booking{}, err
	}
	s.tell(ctx, b.ClientID, b, models.NotifyBookingConfirmed, "Booking confirmed",
		fmt.Sprintf("Your session on %s is confirmed.", b.StartsAt.Format(time.RFC3339)))
	return b, nil
}

func (s *BookingService) Cancel(ctx context.Context, actor models.Actor, id, reason string) (models.Booking, error) {
	b, err := s.transition(ctx, actor, id, "cancelled", func(tx repo.Store, b models.Booking) (models.Booking, error) {
		if !isClientOf(actor, b) && !isTrainerOf(actor, b) && !actor.CanManage(b.FranchiseID) {
			return b, apperr.ErrForbidden
		}
		if !b.Status.Holds() {
			return b, apperr.ErrInvalidTransition
		}
		updated, err := tx.Bookings().UpdateStatus(ctx, b.ID, models.BookingCancelled, nil)
		if err != nil {
			return b, err
		}
		if _, err := s.balances.In(tx).Release(ctx, b.ClientID, b.FranchiseID, b.Hours, b.ID); err != nil {
			return b, err
		}
		return updated, nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	recipient := b.ClientID
	if isClientOf(actor, b) {
		recipient = b.TrainerID
	}
	body := "A booking was cancelled."
	if reason != "" {
		body = "A booking was cancelled: " + reason
	}
	s.tell(ctx, recipient, b, models.NotifyBookingCancelled, "Booking cancelled", body)
	return b, nil
}

func (s *BookingService) Complete(ctx context.Context, actor models.Actor, id string) (models.Booking, error) {
	b, err := s.transition(ctx, actor, id, "completed", func(tx repo.Store, b models.Booking) (models.Booking, error) {
		if !isTrainerOf(actor, b) && !actor.CanManage(b.FranchiseID) {
			return b, apperr.Forbidden("only the trainer can complete")
		}
		if b.Status != models.BookingConfirmed {
			return b, apperr.ErrInvalidTransition
		}
		updated, err := tx.Bookings().UpdateStatus(ctx, b.ID, models.BookingCompleted, nil)
		if err != nil {
			return b, err
		}
		if _, err := s.balances.In(tx).Consume(ctx, b.ClientID, b.FranchiseID, b.Hours, b.ID); err != nil {
			return b, err
		}
		return updated, nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	s.tell(ctx, b.ClientID, b, models.NotifyBookingCompleted, "Session completed",
		fmt.Sprintf("%d hour(s) were used from your balance.", b.Hours))
	return b, nil
}

// Refund gives the hours of a completed session back to the client. Only
// owners and admins refund.
func (s *BookingService) Refund(ctx context.Context, actor models.Actor, id, reason string) (models.Booking, error) {
	b, err := s.transition(ctx, actor, id, "refunded", func(tx repo.Store, b models.Booking) (models.Booking, error) {
		if !actor.CanManage(b.FranchiseID) {
			return b, apperr.Forbidden("only managers can refund")
		}
		if b.Status != models.BookingCompleted {
			return b, apperr.ErrInvalidTransition
		}
		updated, err := tx.Bookings().UpdateStatus(ctx, b.ID, models.BookingRefunded, nil)
		if err != nil {
			return b, err
		}
		if _, err := s.balances.In(tx).Refund(ctx, b.ClientID, b.FranchiseID, b.Hours, b.ID, reason); err != nil {
			return b, err
		}
		return updated, nil
	})
	if err != nil {
		return models.Booking{}, err
	}
	body := fmt.Sprintf("%d hour(s) were returned to your balance.", b.Hours)
	if reason != "" {
		body += " " + reason
	}
	s.tell(ctx, b.ClientID, b, models.NotifyBookingRefunded, "Session refunded", body)
	return b, nil
}

// ExpireLock moves a pending booking whose hold ran out to expired and
// releases its hours. It reports whether anything changed.
func (s *BookingService) ExpireLock(ctx context.Context, id string) (bool, error) {
	var (
		expired bool
		out     models.Booking
	)
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.LockExpired(s.clock.Now()) {
			return nil
		}
		if out, err = tx.Bookings().UpdateStatus(ctx, b.ID, models.BookingExpired, nil); err != nil {
			return err
		}
		if _, err := s.balances.In(tx).Release(ctx, b.ClientID, b.FranchiseID, b.Hours, b.ID); err != nil {
			return err
		}
		expired = true
		return audit(ctx, tx, "booking", b.ID, "", "expired", map[string]any{"hours": b.Hours})
	})
	if err != nil || !expired {
		return false, err
	}
	metrics.BookingsTotal.WithLabelValues(string(models.BookingExpired)).Inc()
	s.tell(ctx, out.ClientID, out, models.NotifyBookingExpired, "Booking request expired",
		"The trainer did not confirm in time. Your hours were released.")
	return true, nil
}

// ExpiredLocks lists pending bookings whose hold has run out.
func (s *BookingService) ExpiredLocks(ctx context.Context, limit int) ([]models.Booking, error) {
	return s.store.Bookings().ListExpiredLocks(ctx, s.clock.Now().UTC(), limit)
}

func (s *BookingService) Get(ctx context.Context, actor models.Actor, id string) (models.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if !canSee(actor, b) {
		return models.Booking{}, apperr.ErrNotFound
	}
	return b, nil
}

// List scopes f to what the actor may see before querying.
func (s *BookingService) List(ctx context.Context, actor models.Actor, f models.BookingFilter) ([]models.Booking, error) {
	if !actor.IsAdmin() {
		f.FranchiseID = actor.FranchiseID
	}
	switch actor.Role {
	case models.RoleClient:
		f.ClientID = actor.UserID
	case models.RoleTrainer:
		f.TrainerID = actor.UserID
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return s.store.Bookings().List(ctx, f)
}

type transitionFunc func(tx repo.Store, b models.Booking) (models.Booking, error)

func (s *BookingService) transition(ctx context.Context, actor models.Actor, id, action string, fn transitionFunc) (models.Booking, error) {
	var out models.Booking
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canSee(actor, b) {
			return apperr.ErrNotFound
		}
		from := b.Status
		if out, err = fn(tx, b); err != nil {
			return err
		}
		return audit(ctx, tx, "booking", b.ID, actor.UserID, action, map[string]any{"from": from, "to": out.Status})
	})
	if err != nil {
		return models.Booking{}, err
	}
	metrics.BookingsTotal.WithLabelValues(string(out.Status)).Inc()
	return out, nil
}

func (s *BookingService) tell(ctx context.Context, userID string, b models.Booking, kind, title, body string) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(ctx, models.Notification{
		UserID:      userID,
		FranchiseID: franchiseRef(b.FranchiseID),
		Kind:        kind,
		Title:       title,
		Body:        body,
		Data:        map[string]any{"booking_id": b.ID, "status": b.Status},
	})
}

func isClientOf(a models.Actor, b models.Booking) bool  { return a.UserID == b.ClientID }
func isTrainerOf(a models.Actor, b models.Booking) bool { return a.UserID == b.TrainerID }

func canSee(a models.Actor, b models.Booking) bool {
	if !a.InFranchise(b.FranchiseID) {
		return false
	}
	return isClientOf(a, b) || isTrainerOf(a, b) || a.CanManage(b.FranchiseID)
}
