package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

type notificationsRepo struct{ db dbtx }

const notificationCols = `id, user_id, franchise_id, kind, title, body, data, read_at, created_at`

func scanNotification(row scanner) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.FranchiseID, &n.Kind, &n.Title, &n.Body, &n.Data, &n.ReadAt, &n.CreatedAt)
	return n, mapErr(err)
}

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return scanNotification(r.db.QueryRow(ctx,
		`INSERT INTO notifications(id, user_id, franchise_id, kind, title, body, data)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+notificationCols,
		n.ID, n.UserID, n.FranchiseID, n.Kind, n.Title, n.Body, n.Data,
	))
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationCols+`
		   FROM notifications
		  WHERE user_id=$1 AND (NOT $2 OR read_at IS NULL)
		  ORDER BY created_at DESC
		  LIMIT $3 OFFSET $4`,
		userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationsRepo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $3) WHERE id=$1 AND user_id=$2`,
		id, userID, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *notificationsRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at=$2 WHERE user_id=$1 AND read_at IS NULL`,
		userID, at)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationsRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id=$1 AND read_at IS NULL`, userID,
	).Scan(&n)
	return n, mapErr(err)
}
