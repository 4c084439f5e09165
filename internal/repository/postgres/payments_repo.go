package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

type paymentsRepo struct{ db dbtx }

const paymentCols = `id, franchise_id, user_id, package_id, hours, amount_minor, currency, status,
	provider, COALESCE(provider_ref, ''), checkout_url, created_at, updated_at`

func scanPayment(row scanner) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.FranchiseID, &p.UserID, &p.PackageID, &p.Hours, &p.AmountMinor, &p.Currency, &p.Status,
		&p.Provider, &p.ProviderRef, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func (r *paymentsRepo) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return scanPayment(r.db.QueryRow(ctx,
		`INSERT INTO payments(id, franchise_id, user_id, package_id, hours, amount_minor, currency, status, provider)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+paymentCols,
		p.ID, p.FranchiseID, p.UserID, p.PackageID, p.Hours, p.AmountMinor, p.Currency, p.Status, p.Provider,
	))
}

func (r *paymentsRepo) GetByID(ctx context.Context, id string) (models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id))
}

func (r *paymentsRepo) GetForUpdate(ctx context.Context, id string) (models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
}

func (r *paymentsRepo) SetCheckout(ctx context.Context, id, providerRef, url string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET provider_ref=$2, checkout_url=$3, updated_at=now() WHERE id=$1`,
		id, providerRef, url)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *paymentsRepo) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE payments SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *paymentsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	return r.list(ctx, `user_id=$1`, userID, limit, offset)
}

func (r *paymentsRepo) ListByFranchise(ctx context.Context, franchiseID string, limit, offset int) ([]models.Payment, error) {
	return r.list(ctx, `franchise_id=$1`, franchiseID, limit, offset)
}

func (r *paymentsRepo) list(ctx context.Context, cond, id string, limit, offset int) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE `+cond+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
