package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relayne/postdeck/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error)
	GetByPostID(ctx context.Context, postID int64) (*models.ScheduledPost, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*models.ScheduledPost, error)
	Remove(ctx context.Context, id int64) error
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (post_id, client_id, caption, media_reference, scheduled_date, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	args := []any{sp.PostID, sp.ClientID, sp.Caption, sp.MediaReference, sp.ScheduledDate, sp.ScheduledTime}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduledPostRepository) GetByPostID(ctx context.Context, postID int64) (*models.ScheduledPost, error) {
	query := `SELECT id, post_id, client_id, caption, media_reference, scheduled_date, scheduled_time, created_at
		FROM scheduled_posts WHERE post_id = $1`
	row := r.db.QueryRowContext(ctx, query, postID)

	var sp models.ScheduledPost
	err := row.Scan(&sp.ID, &sp.PostID, &sp.ClientID, &sp.Caption, &sp.MediaReference,
		&sp.ScheduledDate, &sp.ScheduledTime, &sp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sp, nil
}

func (r *scheduledPostRepository) ListByClientID(ctx context.Context, clientID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT id, post_id, client_id, caption, media_reference, scheduled_date, scheduled_time, created_at
		FROM scheduled_posts WHERE client_id = $1 ORDER BY scheduled_date, scheduled_time`
	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var sps []*models.ScheduledPost
	for rows.Next() {
		var sp models.ScheduledPost
		err := rows.Scan(&sp.ID, &sp.PostID, &sp.ClientID, &sp.Caption, &sp.MediaReference,
			&sp.ScheduledDate, &sp.ScheduledTime, &sp.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		sps = append(sps, &sp)
	}
	return sps, rows.Err()
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
