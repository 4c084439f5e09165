package repository

import (
	"context"
	"time"

	"github.com/baharkarakas/franchise-backend/internal/models"
)

type Franchises interface {
	Create(ctx context.Context, f models.Franchise) (models.Franchise, error)
	GetByID(ctx context.Context, id string) (models.Franchise, error)
	GetBySlug(ctx context.Context, slug string) (models.Franchise, error)
	List(ctx context.Context, limit, offset int) ([]models.Franchise, error)
	Update(ctx context.Context, f models.Franchise) (models.Franchise, error)
}

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, franchiseID string, role models.Role, limit, offset int) ([]models.User, error)
	Delete(ctx context.Context, id string) error
}

type Balances interface {
	// GetOrCreate returns the balance, inserting a zero row when missing.
	GetOrCreate(ctx context.Context, userID, franchiseID string) (models.Balance, error)
	// Apply moves the counters in one statement. It fails with
	// apperr.ErrInsufficientHours when the result would break the balance invariant.
	Apply(ctx context.Context, userID, franchiseID string, d models.BalanceDelta) (models.Balance, error)
}

type Ledger interface {
	Create(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error)
	ListByUser(ctx context.Context, userID, franchiseID string, limit, offset int) ([]models.LedgerEntry, error)
}

type Bookings interface {
	Create(ctx context.Context, b models.Booking) (models.Booking, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (models.Booking, error)
	GetByID(ctx context.Context, id string) (models.Booking, error)
	List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
	// LockTrainer serializes booking creation for one trainer until the transaction ends.
	LockTrainer(ctx context.Context, trainerID string) error
	HasOverlap(ctx context.Context, trainerID string, start, end time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus, lockExpiresAt *time.Time) (models.Booking, error)
	ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
}

type Packages interface {
	Create(ctx context.Context, p models.Package) (models.Package, error)
	GetByID(ctx context.Context, id string) (models.Package, error)
	ListActive(ctx context.Context, franchiseID string) ([]models.Package, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type Payments interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	GetByID(ctx context.Context, id string) (models.Payment, error)
	GetForUpdate(ctx context.Context, id string) (models.Payment, error)
	SetCheckout(ctx context.Context, id, providerRef, url string) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error)
	ListByFranchise(ctx context.Context, franchiseID string, limit, offset int) ([]models.Payment, error)
}

type Notifications interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Store groups the repositories. Repositories obtained from the Store passed
// to WithTx share one database transaction.
type Store interface {
	Franchises() Franchises
	Users() Users
	Balances() Balances
	Ledger() Ledger
	Bookings() Bookings
	Packages() Packages
	Payments() Payments
	Notifications() Notifications
	AuditLogs() AuditLogs

	WithTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
