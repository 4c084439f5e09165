package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/events"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
	"github.com/baharkarakas/franchise-backend/internal/worker"
)

// Notifier is what other services use to tell a user something happened.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type NotificationService struct {
	store repo.Store
	bus   events.Bus
	wp    *worker.Pool
	clock clockwork.Clock
}

func NewNotificationService(st repo.Store, bus events.Bus, wp *worker.Pool, clock clockwork.Clock) *NotificationService {
	return &NotificationService{store: st, bus: bus, wp: wp, clock: clock}
}

// Notify stores n and publishes it on the user's topic from the worker pool.
// Failures are logged; the caller's operation has already succeeded.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	ctx = context.WithoutCancel(ctx)
	job := func() {
		if err := s.deliver(ctx, n); err != nil {
			slog.ErrorContext(ctx, "notification delivery failed", "user_id", n.UserID, "kind", n.Kind, "err", err)
		}
	}
	if !s.wp.Submit(job) {
		job()
	}
}

func (s *NotificationService) deliver(ctx context.Context, n models.Notification) error {
	saved, err := s.store.Notifications().Create(ctx, n)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(saved.Kind).Inc()

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.bus.Publish(ctx, events.Event{
		ID:    saved.ID,
		Topic: events.UserTopic(saved.UserID),
		Kind:  saved.Kind,
		Data:  data,
		At:    saved.CreatedAt,
	})
}

func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.Notifications().ListByUser(ctx, actor.UserID, unreadOnly, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	return s.store.Notifications().MarkRead(ctx, actor.UserID, id, s.clock.Now().UTC())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, actor.UserID, s.clock.Now().UTC())
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return s.store.Notifications().CountUnread(ctx, actor.UserID)
}

// Subscribe streams the actor's notifications until ctx ends.
func (s *NotificationService) Subscribe(ctx context.Context, actor models.Actor) (*events.Subscription, error) {
	if actor.UserID == "" {
		return nil, apperr.ErrUnauthorized
	}
	return s.bus.Subscribe(ctx, events.UserTopic(actor.UserID))
}

func franchiseRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
