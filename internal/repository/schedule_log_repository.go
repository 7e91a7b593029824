package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relayne/postdeck/internal/models"
)

type ScheduleLogRepository interface {
	Create(ctx context.Context, sl *models.ScheduleLog) (int64, error)
	GetByRemoteJobID(ctx context.Context, remoteJobID string) (*models.ScheduleLog, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.ScheduleLog, error)
	ListPartial(ctx context.Context) ([]*models.ScheduleLog, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type scheduleLogRepository struct {
	db *sql.DB
}

func NewScheduleLogRepository(db *sql.DB) ScheduleLogRepository {
	return &scheduleLogRepository{db: db}
}

func (r *scheduleLogRepository) Create(ctx context.Context, sl *models.ScheduleLog) (int64, error) {
	query := `
		INSERT INTO schedule_log (post_id, account_id, remote_media_url, remote_job_id, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, sl.PostID, sl.AccountID, sl.RemoteMediaURL,
		sl.RemoteJobID, sl.Status, sl.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduleLogRepository) GetByRemoteJobID(ctx context.Context, remoteJobID string) (*models.ScheduleLog, error) {
	query := `SELECT id, post_id, account_id, remote_media_url, remote_job_id, status, error_message, created_at
		FROM schedule_log WHERE remote_job_id = $1`
	row := r.db.QueryRowContext(ctx, query, remoteJobID)

	var sl models.ScheduleLog
	err := row.Scan(&sl.ID, &sl.PostID, &sl.AccountID, &sl.RemoteMediaURL, &sl.RemoteJobID,
		&sl.Status, &sl.ErrorMessage, &sl.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sl, nil
}

func (r *scheduleLogRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.ScheduleLog, error) {
	query := `SELECT id, post_id, account_id, remote_media_url, remote_job_id, status, error_message, created_at
		FROM schedule_log WHERE post_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, postID)
}

func (r *scheduleLogRepository) ListPartial(ctx context.Context) ([]*models.ScheduleLog, error) {
	query := `SELECT id, post_id, account_id, remote_media_url, remote_job_id, status, error_message, created_at
		FROM schedule_log WHERE status = $1 ORDER BY created_at`
	return r.list(ctx, query, models.ScheduleLogPartial)
}

func (r *scheduleLogRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE schedule_log SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleLogRepository) list(ctx context.Context, query string, arg any) ([]*models.ScheduleLog, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var sls []*models.ScheduleLog
	for rows.Next() {
		var sl models.ScheduleLog
		err := rows.Scan(&sl.ID, &sl.PostID, &sl.AccountID, &sl.RemoteMediaURL, &sl.RemoteJobID,
			&sl.Status, &sl.ErrorMessage, &sl.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		sls = append(sls, &sl)
	}
	return sls, rows.Err()
}
