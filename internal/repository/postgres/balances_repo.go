package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

type balancesRepo struct{ db dbtx }

const balanceCols = `user_id, franchise_id, purchased_hours, consumed_hours, locked_hours, updated_at`

func scanBalance(row scanner) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.UserID, &b.FranchiseID, &b.PurchasedHours, &b.ConsumedHours, &b.LockedHours, &b.UpdatedAt)
	return b, mapErr(err)
}

func (r *balancesRepo) GetOrCreate(ctx context.Context, userID, franchiseID string) (models.Balance, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO balances(user_id, franchise_id)
		 VALUES($1, $2)
		 ON CONFLICT (user_id, franchise_id) DO NOTHING`,
		userID, franchiseID,
	)
	if err != nil {
		return models.Balance{}, mapErr(err)
	}
	return scanBalance(r.db.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM balances WHERE user_id=$1 AND franchise_id=$2`,
		userID, franchiseID))
}

func (r *balancesRepo) Apply(ctx context.Context, userID, franchiseID string, d models.BalanceDelta) (models.Balance, error) {
	if _, err := r.GetOrCreate(ctx, userID, franchiseID); err != nil {
		return models.Balance{}, err
	}
	b, err := scanBalance(r.db.QueryRow(ctx,
		`UPDATE balances
		    SET purchased_hours = purchased_hours + $3,
		        consumed_hours  = consumed_hours + $4,
		        locked_hours    = locked_hours + $5,
		        updated_at      = now()
		  WHERE user_id = $1 AND franchise_id = $2
		    AND purchased_hours + $3 >= 0
		    AND consumed_hours + $4 >= 0
		    AND locked_hours + $5 >= 0
		    AND (consumed_hours + $4) + (locked_hours + $5) <= purchased_hours + $3
		  RETURNING `+balanceCols,
		userID, franchiseID, d.Purchased, d.Consumed, d.Locked,
	))
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Balance{}, apperr.ErrInsufficientHours
	}
	return b, err
}
