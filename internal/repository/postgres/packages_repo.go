package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

type packagesRepo struct{ db dbtx }

const packageCols = `id, franchise_id, name, hours, price_minor, currency, active, created_at`

func scanPackage(row scanner) (models.Package, error) {
	var p models.Package
	err := row.Scan(&p.ID, &p.FranchiseID, &p.Name, &p.Hours, &p.PriceMinor, &p.Currency, &p.Active, &p.CreatedAt)
	return p, mapErr(err)
}

func (r *packagesRepo) Create(ctx context.Context, p models.Package) (models.Package, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return scanPackage(r.db.QueryRow(ctx,
		`INSERT INTO packages(id, franchise_id, name, hours, price_minor, currency, active)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+packageCols,
		p.ID, p.FranchiseID, p.Name, p.Hours, p.PriceMinor, p.Currency, p.Active,
	))
}

func (r *packagesRepo) GetByID(ctx context.Context, id string) (models.Package, error) {
	return scanPackage(r.db.QueryRow(ctx, `SELECT `+packageCols+` FROM packages WHERE id=$1`, id))
}

func (r *packagesRepo) ListActive(ctx context.Context, franchiseID string) ([]models.Package, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+packageCols+` FROM packages WHERE franchise_id=$1 AND active ORDER BY hours`,
		franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *packagesRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE packages SET active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
