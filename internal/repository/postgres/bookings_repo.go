package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/models"
)

type bookingsRepo struct{ db dbtx }

const bookingCols = `id, franchise_id, client_id, trainer_id, starts_at, ends_at, hours, status,
	lock_expires_at, note, created_at, updated_at`

func scanBooking(row scanner) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.FranchiseID, &b.ClientID, &b.TrainerID, &b.StartsAt, &b.EndsAt, &b.Hours, &b.Status,
		&b.LockExpiresAt, &b.Note, &b.CreatedAt, &b.UpdatedAt)
	return b, mapErr(err)
}

func (r *bookingsRepo) Create(ctx context.Context, b models.Booking) (models.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return scanBooking(r.db.QueryRow(ctx,
		`INSERT INTO bookings(id, franchise_id, client_id, trainer_id, starts_at, ends_at, hours, status, lock_expires_at, note)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING `+bookingCols,
		b.ID, b.FranchiseID, b.ClientID, b.TrainerID, b.StartsAt, b.EndsAt, b.Hours, b.Status, b.LockExpiresAt, b.Note,
	))
}

func (r *bookingsRepo) GetByID(ctx context.Context, id string) (models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1`, id))
}

func (r *bookingsRepo) GetForUpdate(ctx context.Context, id string) (models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
}

func (r *bookingsRepo) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FranchiseID != "" {
		add("franchise_id = $%d", f.FranchiseID)
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.TrainerID != "" {
		add("trainer_id = $%d", f.TrainerID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != nil {
		add("starts_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("starts_at < $%d", *f.To)
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY starts_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *bookingsRepo) LockTrainer(ctx context.Context, trainerID string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, trainerID)
	return err
}

func (r *bookingsRepo) HasOverlap(ctx context.Context, trainerID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM bookings
		    WHERE trainer_id = $1
		      AND status IN ('pending','confirmed')
		      AND starts_at < $3 AND $2 < ends_at)`,
		trainerID, start, end,
	).Scan(&exists)
	return exists, mapErr(err)
}

func (r *bookingsRepo) UpdateStatus(ctx context.Context, id string, status models.BookingStatus, lockExpiresAt *time.Time) (models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx,
		`UPDATE bookings SET status=$2, lock_expires_at=$3, updated_at=now()
		  WHERE id=$1
		  RETURNING `+bookingCols,
		id, status, lockExpiresAt,
	))
}

func (r *bookingsRepo) ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookingCols+`
		   FROM bookings
		  WHERE status = 'pending' AND lock_expires_at <= $1
		  ORDER BY lock_expires_at
		  LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
