package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

type franchises struct{ s *Store }

func (r *franchises) Create(_ context.Context, f models.Franchise) (models.Franchise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *r.s.d
	for _, x := range d.franchises {
		if x.Slug == f.Slug {
			return models.Franchise{}, apperr.ErrDuplicate
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt, f.UpdatedAt = r.s.Now(), r.s.Now()
	d.franchises[f.ID] = f
	return f, nil
}

func (r *franchises) GetByID(_ context.Context, id string) (models.Franchise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := (*r.s.d).franchises[id]
	if !ok {
		return models.Franchise{}, apperr.ErrNotFound
	}
	return f, nil
}

func (r *franchises) GetBySlug(_ context.Context, slug string) (models.Franchise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range (*r.s.d).franchises {
		if f.Slug == slug {
			return f, nil
		}
	}
	return models.Franchise{}, apperr.ErrNotFound
}

func (r *franchises) List(_ context.Context, limit, offset int) ([]models.Franchise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Franchise, 0, len((*r.s.d).franchises))
	for _, f := range (*r.s.d).franchises {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *franchises) Update(_ context.Context, f models.Franchise) (models.Franchise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := (*r.s.d).franchises[f.ID]
	if !ok {
		return models.Franchise{}, apperr.ErrNotFound
	}
	cur.Name, cur.Timezone, cur.Active = f.Name, f.Timezone, f.Active
	cur.UpdatedAt = r.s.Now()
	(*r.s.d).franchises[f.ID] = cur
	return cur, nil
}

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *r.s.d
	for _, x := range d.users {
		if x.Email == u.Email {
			return models.User{}, apperr.ErrDuplicate
		}
	}
	if u.FranchiseID != nil {
		if _, ok := d.franchises[*u.FranchiseID]; !ok {
			return models.User{}, apperr.Validation("referenced record does not exist")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt, u.UpdatedAt = r.s.Now(), r.s.Now()
	d.users[u.ID] = u
	return u, nil
}

func (r *users) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := (*r.s.d).users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range (*r.s.d).users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.ErrNotFound
}

func (r *users) List(_ context.Context, franchiseID string, role models.Role, limit, offset int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.User{}
	for _, u := range (*r.s.d).users {
		if franchiseID != "" && (u.FranchiseID == nil || *u.FranchiseID != franchiseID) {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, limit, offset), nil
}

func (r *users) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *r.s.d
	if _, ok := d.users[id]; !ok {
		return apperr.ErrNotFound
	}
	if d.referencesUser(id) {
		return apperr.ErrUserHasHistory
	}
	delete(d.users, id)
	return nil
}

// referencesUser mirrors the foreign keys that block deleting a user in Postgres.
func (d *data) referencesUser(id string) bool {
	for _, b := range d.bookings {
		if b.ClientID == id || b.TrainerID == id {
			return true
		}
	}
	for _, p := range d.payments {
		if p.UserID == id {
			return true
		}
	}
	for _, e := range d.ledger {
		if e.UserID == id {
			return true
		}
	}
	return false
}

type balances struct{ s *Store }

func balanceKey(userID, franchiseID string) string { return userID + "/" + franchiseID }

// must be called with mu held
func (r *balances) getOrCreate(userID, franchiseID string) models.Balance {
	d := *r.s.d
	k := balanceKey(userID, franchiseID)
	b, ok := d.balances[k]
	if !ok {
		b = models.Balance{UserID: userID, FranchiseID: franchiseID, UpdatedAt: r.s.Now()}
		d.balances[k] = b
	}
	return b
}

func (r *balances) GetOrCreate(_ context.Context, userID, franchiseID string) (models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.getOrCreate(userID, franchiseID), nil
}

func (r *balances) Apply(_ context.Context, userID, franchiseID string, delta models.BalanceDelta) (models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("balances.apply"); err != nil {
		return models.Balance{}, err
	}
	b, ok := r.getOrCreate(userID, franchiseID).Apply(delta)
	if !ok {
		return models.Balance{}, apperr.ErrInsufficientHours
	}
	b.UpdatedAt = r.s.Now()
	(*r.s.d).balances[balanceKey(userID, franchiseID)] = b
	return b, nil
}

type ledger struct{ s *Store }

func (r *ledger) Create(_ context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("ledger.create"); err != nil {
		return models.LedgerEntry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.s.Now()
	(*r.s.d).ledger = append((*r.s.d).ledger, e)
	return e, nil
}

func (r *ledger) ListByUser(_ context.Context, userID, franchiseID string, limit, offset int) ([]models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.LedgerEntry{}
	all := (*r.s.d).ledger
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID && all[i].FranchiseID == franchiseID {
			out = append(out, all[i])
		}
	}
	return page(out, limit, offset), nil
}

type bookings struct{ s *Store }

func (r *bookings) Create(_ context.Context, b models.Booking) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("bookings.create"); err != nil {
		return models.Booking{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt, b.UpdatedAt = r.s.Now(), r.s.Now()
	(*r.s.d).bookings[b.ID] = b
	return b, nil
}

func (r *bookings) GetByID(_ context.Context, id string) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := (*r.s.d).bookings[id]
	if !ok {
		return models.Booking{}, apperr.ErrNotFound
	}
	return b, nil
}

func (r *bookings) GetForUpdate(ctx context.Context, id string) (models.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookings) List(_ context.Context, f models.BookingFilter) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range (*r.s.d).bookings {
		switch {
		case f.FranchiseID != "" && b.FranchiseID != f.FranchiseID,
			f.ClientID != "" && b.ClientID != f.ClientID,
			f.TrainerID != "" && b.TrainerID != f.TrainerID,
			f.Status != "" && b.Status != f.Status,
			f.From != nil && b.StartsAt.Before(*f.From),
			f.To != nil && !b.StartsAt.Before(*f.To):
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r *bookings) LockTrainer(context.Context, string) error { return nil }

func (r *bookings) HasOverlap(_ context.Context, trainerID string, start, end time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range (*r.s.d).bookings {
		if b.TrainerID == trainerID && b.Status.Holds() && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *bookings) UpdateStatus(_ context.Context, id string, status models.BookingStatus, lockExpiresAt *time.Time) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("bookings.update_status"); err != nil {
		return models.Booking{}, err
	}
	b, ok := (*r.s.d).bookings[id]
	if !ok {
		return models.Booking{}, apperr.ErrNotFound
	}
	b.Status, b.LockExpiresAt, b.UpdatedAt = status, lockExpiresAt, r.s.Now()
	(*r.s.d).bookings[id] = b
	return b, nil
}

func (r *bookings) ListExpiredLocks(_ context.Context, now time.Time, limit int) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("bookings.list_expired"); err != nil {
		return nil, err
	}
	out := []models.Booking{}
	for _, b := range (*r.s.d).bookings {
		if b.LockExpired(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LockExpiresAt.Before(*out[j].LockExpiresAt) })
	return page(out, limit, 0), nil
}

type packages struct{ s *Store }

func (r *packages) Create(_ context.Context, p models.Package) (models.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.s.Now()
	(*r.s.d).packages[p.ID] = p
	return p, nil
}

func (r *packages) GetByID(_ context.Context, id string) (models.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := (*r.s.d).packages[id]
	if !ok {
		return models.Package{}, apperr.ErrNotFound
	}
	return p, nil
}

func (r *packages) ListActive(_ context.Context, franchiseID string) ([]models.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Package{}
	for _, p := range (*r.s.d).packages {
		if p.FranchiseID == franchiseID && p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hours < out[j].Hours })
	return out, nil
}

func (r *packages) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := (*r.s.d).packages[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.Active = active
	(*r.s.d).packages[id] = p
	return nil
}

type payments struct{ s *Store }

func (r *payments) Create(_ context.Context, p models.Payment) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = r.s.Now(), r.s.Now()
	(*r.s.d).payments[p.ID] = p
	return p, nil
}

func (r *payments) GetByID(_ context.Context, id string) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := (*r.s.d).payments[id]
	if !ok {
		return models.Payment{}, apperr.ErrNotFound
	}
	return p, nil
}

func (r *payments) GetForUpdate(ctx context.Context, id string) (models.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *payments) SetCheckout(_ context.Context, id, providerRef, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := (*r.s.d).payments[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.ProviderRef, p.CheckoutURL, p.UpdatedAt = providerRef, url, r.s.Now()
	(*r.s.d).payments[id] = p
	return nil
}

func (r *payments) UpdateStatus(_ context.Context, id string, status models.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("payments.update_status"); err != nil {
		return err
	}
	p, ok := (*r.s.d).payments[id]
	if !ok {
		return apperr.ErrNotFound
	}
	p.Status, p.UpdatedAt = status, r.s.Now()
	(*r.s.d).payments[id] = p
	return nil
}

func (r *payments) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	return r.list(func(p models.Payment) bool { return p.UserID == userID }, limit, offset), nil
}

func (r *payments) ListByFranchise(_ context.Context, franchiseID string, limit, offset int) ([]models.Payment, error) {
	return r.list(func(p models.Payment) bool { return p.FranchiseID == franchiseID }, limit, offset), nil
}

func (r *payments) list(match func(models.Payment) bool, limit, offset int) []models.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Payment{}
	for _, p := range (*r.s.d).payments {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset)
}

type notifications struct{ s *Store }

func (r *notifications) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.s.Now()
	(*r.s.d).notifications = append((*r.s.d).notifications, n)
	return n, nil
}

func (r *notifications) ListByUser(_ context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Notification{}
	all := (*r.s.d).notifications
	for i := len(all) - 1; i >= 0; i-- {
		n := all[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return page(out, limit, offset), nil
}

func (r *notifications) MarkRead(_ context.Context, userID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := (*r.s.d).notifications
	for i := range all {
		if all[i].ID == id && all[i].UserID == userID {
			if all[i].ReadAt == nil {
				all[i].ReadAt = &at
			}
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (r *notifications) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	all := (*r.s.d).notifications
	for i := range all {
		if all[i].UserID == userID && all[i].ReadAt == nil {
			all[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r *notifications) CountUnread(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range (*r.s.d).notifications {
		if x.UserID == userID && x.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

type auditLogs struct{ s *Store }

func (r *auditLogs) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.CreatedAt = r.s.Now()
	(*r.s.d).audit = append((*r.s.d).audit, l)
	return nil
}
