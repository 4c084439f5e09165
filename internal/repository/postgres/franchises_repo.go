package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/models"
)

type franchisesRepo struct{ db dbtx }

const franchiseCols = `id, name, slug, timezone, active, created_at, updated_at`

func scanFranchise(row scanner) (models.Franchise, error) {
	var f models.Franchise
	err := row.Scan(&f.ID, &f.Name, &f.Slug, &f.Timezone, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	return f, mapErr(err)
}

func (r *franchisesRepo) Create(ctx context.Context, f models.Franchise) (models.Franchise, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return scanFranchise(r.db.QueryRow(ctx,
		`INSERT INTO franchises(id, name, slug, timezone, active)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+franchiseCols,
		f.ID, f.Name, f.Slug, f.Timezone, f.Active,
	))
}

func (r *franchisesRepo) GetByID(ctx context.Context, id string) (models.Franchise, error) {
	return scanFranchise(r.db.QueryRow(ctx, `SELECT `+franchiseCols+` FROM franchises WHERE id=$1`, id))
}

func (r *franchisesRepo) GetBySlug(ctx context.Context, slug string) (models.Franchise, error) {
	return scanFranchise(r.db.QueryRow(ctx, `SELECT `+franchiseCols+` FROM franchises WHERE slug=$1`, slug))
}

func (r *franchisesRepo) List(ctx context.Context, limit, offset int) ([]models.Franchise, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+franchiseCols+` FROM franchises ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Franchise{}
	for rows.Next() {
		f, err := scanFranchise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *franchisesRepo) Update(ctx context.Context, f models.Franchise) (models.Franchise, error) {
	return scanFranchise(r.db.QueryRow(ctx,
		`UPDATE franchises SET name=$2, timezone=$3, active=$4, updated_at=now()
		  WHERE id=$1
		  RETURNING `+franchiseCols,
		f.ID, f.Name, f.Timezone, f.Active,
	))
}
