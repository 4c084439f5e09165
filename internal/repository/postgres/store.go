package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	pool *pgxpool.Pool
	db   dbtx
	inTx bool
}

var _ repo.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

func (s *Store) Franchises() repo.Franchises       { return &franchisesRepo{s.db} }
func (s *Store) Users() repo.Users                 { return &usersRepo{s.db} }
func (s *Store) Balances() repo.Balances           { return &balancesRepo{s.db} }
func (s *Store) Ledger() repo.Ledger               { return &ledgerRepo{s.db} }
func (s *Store) Bookings() repo.Bookings           { return &bookingsRepo{s.db} }
func (s *Store) Packages() repo.Packages           { return &packagesRepo{s.db} }
func (s *Store) Payments() repo.Payments           { return &paymentsRepo{s.db} }
func (s *Store) Notifications() repo.Notifications { return &notificationsRepo{s.db} }
func (s *Store) AuditLogs() repo.AuditLogs         { return &auditLogsRepo{s.db} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// WithTx runs fn inside one read-committed transaction. Nested calls reuse the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{pool: s.pool, db: tx, inTx: true}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.ErrDuplicate.Wrap(err)
		case "23503":
			return apperr.Validation("referenced record does not exist").Wrap(err)
		case "23514":
			return apperr.Validation("constraint violated: " + pgErr.ConstraintName).Wrap(err)
		case "22P02":
			// malformed uuid in a lookup
			return apperr.ErrNotFound
		}
	}
	return err
}
