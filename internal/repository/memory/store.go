// Package memory is an in-process implementation of repository.Store used by tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

type data struct {
	franchises    map[string]models.Franchise
	users         map[string]models.User
	balances      map[string]models.Balance
	ledger        []models.LedgerEntry
	bookings      map[string]models.Booking
	packages      map[string]models.Package
	payments      map[string]models.Payment
	notifications []models.Notification
	audit         []models.AuditLog
}

func (d *data) clone() *data {
	return &data{
		franchises:    maps.Clone(d.franchises),
		users:         maps.Clone(d.users),
		balances:      maps.Clone(d.balances),
		ledger:        append([]models.LedgerEntry(nil), d.ledger...),
		bookings:      maps.Clone(d.bookings),
		packages:      maps.Clone(d.packages),
		payments:      maps.Clone(d.payments),
		notifications: append([]models.Notification(nil), d.notifications...),
		audit:         append([]models.AuditLog(nil), d.audit...),
	}
}

// Store keeps everything in maps guarded by one mutex. WithTx serializes
// transactions and restores a snapshot when fn fails.
type Store struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	d    **data
	inTx bool

	// Now stamps created_at/updated_at; tests may replace it.
	Now    func() time.Time
	failOn map[string]error
}

var _ repo.Store = (*Store)(nil)

func New() *Store {
	d := &data{
		franchises: map[string]models.Franchise{},
		users:      map[string]models.User{},
		balances:   map[string]models.Balance{},
		bookings:   map[string]models.Booking{},
		packages:   map[string]models.Package{},
		payments:   map[string]models.Payment{},
	}
	return &Store{
		mu:     &sync.Mutex{},
		txMu:   &sync.Mutex{},
		d:      &d,
		Now:    func() time.Time { return time.Now().UTC() },
		failOn: map[string]error{},
	}
}

// FailNext makes the next call of op (e.g. "ledger.create") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

// must be called with mu held
func (s *Store) injected(op string) error {
	if err, ok := s.failOn[op]; ok {
		delete(s.failOn, op)
		return err
	}
	return nil
}

func (s *Store) Franchises() repo.Franchises       { return &franchises{s} }
func (s *Store) Users() repo.Users                 { return &users{s} }
func (s *Store) Balances() repo.Balances           { return &balances{s} }
func (s *Store) Ledger() repo.Ledger               { return &ledger{s} }
func (s *Store) Bookings() repo.Bookings           { return &bookings{s} }
func (s *Store) Packages() repo.Packages           { return &packages{s} }
func (s *Store) Payments() repo.Payments           { return &payments{s} }
func (s *Store) Notifications() repo.Notifications { return &notifications{s} }
func (s *Store) AuditLogs() repo.AuditLogs         { return &auditLogs{s} }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := (*s.d).clone()
	s.mu.Unlock()

	tx := *s
	tx.inTx = true
	if err := fn(&tx); err != nil {
		s.mu.Lock()
		*s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// AuditLog returns a copy of the recorded audit entries.
func (s *Store) AuditLog() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), (*s.d).audit...)
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
