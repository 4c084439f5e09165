package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/models"
)

type ledgerRepo struct{ db dbtx }

const ledgerCols = `id, user_id, franchise_id, kind, hours, booking_id, payment_id, note,
	purchased_after, consumed_after, locked_after, created_at`

func scanLedger(row scanner) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.UserID, &e.FranchiseID, &e.Kind, &e.Hours, &e.BookingID, &e.PaymentID, &e.Note,
		&e.PurchasedAfter, &e.ConsumedAfter, &e.LockedAfter, &e.CreatedAt)
	return e, mapErr(err)
}

func (r *ledgerRepo) Create(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return scanLedger(r.db.QueryRow(ctx,
		`INSERT INTO ledger_entries(id, user_id, franchise_id, kind, hours, booking_id, payment_id, note,
		                            purchased_after, consumed_after, locked_after)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING `+ledgerCols,
		e.ID, e.UserID, e.FranchiseID, e.Kind, e.Hours, e.BookingID, e.PaymentID, e.Note,
		e.PurchasedAfter, e.ConsumedAfter, e.LockedAfter,
	))
}

func (r *ledgerRepo) ListByUser(ctx context.Context, userID, franchiseID string, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ledgerCols+`
		   FROM ledger_entries
		  WHERE user_id=$1 AND franchise_id=$2
		  ORDER BY created_at DESC
		  LIMIT $3 OFFSET $4`,
		userID, franchiseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
