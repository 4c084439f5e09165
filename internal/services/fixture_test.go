package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/cache"
	"github.com/baharkarakas/franchise-backend/internal/events"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/payments"
	"github.com/baharkarakas/franchise-backend/internal/repository/memory"
	"github.com/baharkarakas/franchise-backend/internal/worker"
)

const (
	testWebhookSecret = "whsec_test"
	testLockTTL       = 15 * time.Minute
)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	clock   *clockwork.FakeClock
	hub     *events.Hub
	pool    *worker.Pool
	gateway *payments.Fake
	cache   *cache.Memory

	notifications *NotificationService
	balances      *BalanceService
	bookings      *BookingService
	payments      *PaymentService
	franchises    *FranchiseService
	users         *UserService
	tokens        *auth.TokenManager

	franchise models.Franchise
	owner     models.User
	trainer   models.User
	client    models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		store:   memory.New(),
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
		hub:     events.NewHub(),
		pool:    worker.NewPool(2, 64),
		gateway: payments.NewFake("http://checkout.local/pay", testWebhookSecret),
	}
	t.Cleanup(f.pool.Stop)

	f.cache = cache.NewMemory(f.clock)
	loader := cache.NewLoader(f.cache, time.Minute)
	f.tokens = auth.NewTokenManager("access-secret", "refresh-secret", "franchise-test", 15*time.Minute, 24*time.Hour)

	f.notifications = NewNotificationService(f.store, f.hub, f.pool, f.clock)
	f.balances = NewBalanceService(f.store, f.notifications)
	f.bookings = NewBookingService(f.store, f.balances, f.notifications, f.clock, testLockTTL)
	f.payments = NewPaymentService(f.store, f.gateway, f.balances, f.notifications)
	f.franchises = NewFranchiseService(f.store, loader)
	f.users = NewUserService(f.store, f.tokens, f.franchises, loader)

	var err error
	f.franchise, err = f.store.Franchises().Create(f.ctx, models.Franchise{Name: "Downtown Gym", Slug: "downtown", Timezone: "UTC", Active: true})
	require.NoError(t, err)
	f.owner = f.seedUser(t, f.franchise.ID, models.RoleOwner, "owner@gym.io")
	f.trainer = f.seedUser(t, f.franchise.ID, models.RoleTrainer, "trainer@gym.io")
	f.client = f.seedUser(t, f.franchise.ID, models.RoleClient, "client@gym.io")
	return f
}

func (f *fixture) seedUser(t *testing.T, franchiseID string, role models.Role, email string) models.User {
	t.Helper()
	u := models.User{Email: email, FullName: "Test " + string(role), Role: role}
	if franchiseID != "" {
		u.FranchiseID = &franchiseID
	}
	u, err := f.store.Users().Create(f.ctx, u)
	require.NoError(t, err)
	return u
}

func (f *fixture) otherFranchise(t *testing.T) (models.Franchise, models.User, models.User) {
	t.Helper()
	other, err := f.store.Franchises().Create(f.ctx, models.Franchise{Name: "Uptown Gym", Slug: "uptown", Timezone: "UTC", Active: true})
	require.NoError(t, err)
	return other,
		f.seedUser(t, other.ID, models.RoleTrainer, "trainer@uptown.io"),
		f.seedUser(t, other.ID, models.RoleClient, "client@uptown.io")
}

func (f *fixture) give(t *testing.T, u models.User, hours int64) {
	t.Helper()
	_, err := f.balances.Purchase(f.ctx, u.ID, *u.FranchiseID, hours, "", "seed")
	require.NoError(t, err)
}

// flush waits for queued notifications; later ones are delivered inline.
func (f *fixture) flush() { f.pool.Stop() }

func (f *fixture) notificationsFor(t *testing.T, u models.User) []models.Notification {
	t.Helper()
	f.flush()
	ns, err := f.store.Notifications().ListByUser(f.ctx, u.ID, false, 100, 0)
	require.NoError(t, err)
	return ns
}

func (f *fixture) slot(inHours, length int) CreateBookingInput {
	start := f.clock.Now().Add(time.Duration(inHours) * time.Hour)
	return CreateBookingInput{TrainerID: f.trainer.ID, StartsAt: start, EndsAt: start.Add(time.Duration(length) * time.Hour)}
}

var admin = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
