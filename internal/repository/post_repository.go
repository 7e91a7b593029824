package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/relayne/postdeck/internal/models"
)

const postColumns = `id, client_id, project_id, caption, media_reference, notes, status,
		approval_status, needs_reapproval, original_caption, currently_editing_by,
		editing_started_at, scheduled_date, scheduled_time, platforms_scheduled,
		external_status, external_post_id, edit_count, last_edited_at, last_edited_by,
		created_at, updated_at`

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*models.Post, error)
	CheckByClientID(ctx context.Context, postID, clientID int64) (bool, error)
	UpdateContent(ctx context.Context, post *models.Post) error
	UpdateStatus(ctx context.Context, status string, postID int64) error
	UpdateSchedule(ctx context.Context, postID int64, scheduledDate, scheduledTime string) error
	UpdateApproval(ctx context.Context, postID int64, approvalStatus string, needsReapproval bool) error
	ClaimEditing(ctx context.Context, postID, actorID int64, cutoff, now time.Time) (bool, error)
	ForceClaimEditing(ctx context.Context, postID, actorID int64, now time.Time) (bool, error)
	ReleaseEditing(ctx context.Context, postID, actorID int64) (bool, error)
	ForceReleaseEditing(ctx context.Context, postID int64) error
	ClearExpiredLocks(ctx context.Context, cutoff time.Time) (int64, error)
	MarkExternalScheduled(ctx context.Context, postID int64, platform, remoteJobID string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (client_id, project_id, caption, media_reference, notes, status,
			approval_status, scheduled_date, scheduled_time, platforms_scheduled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	var err error

	args := []any{post.ClientID, post.ProjectID, post.Caption, post.MediaReference,
		post.Notes, post.Status, post.ApprovalStatus, post.ScheduledDate,
		post.ScheduledTime, pq.StringArray{}}

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

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByClientID(ctx context.Context, clientID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE client_id = $1 AND status != $2 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, clientID, models.PostStatusDeleted)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByClientID(ctx context.Context, postID, clientID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND client_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, clientID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET caption = $1,
			media_reference = $2,
			notes = $3,
			needs_reapproval = $4,
			original_caption = $5,
			edit_count = edit_count + 1,
			last_edited_at = $6,
			last_edited_by = $7,
			updated_at = $6
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query, post.Caption, post.MediaReference, post.Notes,
		post.NeedsReapproval, post.OriginalCaption, time.Now(), post.LastEditedBy, post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateSchedule(ctx context.Context, postID int64, scheduledDate, scheduledTime string) error {
	query := `
		UPDATE posts
		SET scheduled_date = $1,
			scheduled_time = $2,
			status = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, scheduledDate, scheduledTime,
		models.PostStatusScheduled, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateApproval(ctx context.Context, postID int64, approvalStatus string, needsReapproval bool) error {
	query := `
		UPDATE posts
		SET approval_status = $1,
			needs_reapproval = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, approvalStatus, needsReapproval, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimEditing takes the editing lock with a single conditional update so two
// racing acquires cannot both win: the row filter admits the actor only when
// the lock is free, expired past cutoff, or already held by the same actor.
func (r *postRepository) ClaimEditing(ctx context.Context, postID, actorID int64, cutoff, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET currently_editing_by = $1,
			editing_started_at = $2,
			updated_at = $2
		WHERE id = $3
			AND status IN ($4, $5, $6)
			AND (currently_editing_by IS NULL
				OR editing_started_at < $7
				OR currently_editing_by = $1)
	`
	res, err := r.db.ExecContext(ctx, query, actorID, now, postID,
		models.PostStatusDraft, models.PostStatusReady, models.PostStatusScheduled, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForceClaimEditing overwrites the lock regardless of the current holder.
// The status gate still applies.
func (r *postRepository) ForceClaimEditing(ctx context.Context, postID, actorID int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET currently_editing_by = $1,
			editing_started_at = $2,
			updated_at = $2
		WHERE id = $3
			AND status IN ($4, $5, $6)
	`
	res, err := r.db.ExecContext(ctx, query, actorID, now, postID,
		models.PostStatusDraft, models.PostStatusReady, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseEditing clears the lock only while the actor still holds it, so a
// release racing a force takeover cannot evict the new holder.
func (r *postRepository) ReleaseEditing(ctx context.Context, postID, actorID int64) (bool, error) {
	query := `
		UPDATE posts
		SET currently_editing_by = NULL,
			editing_started_at = NULL,
			updated_at = $1
		WHERE id = $2
			AND currently_editing_by = $3
	`
	res, err := r.db.ExecContext(ctx, query, time.Now(), postID, actorID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForceReleaseEditing clears the lock regardless of the holder.
func (r *postRepository) ForceReleaseEditing(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET currently_editing_by = NULL,
			editing_started_at = NULL,
			updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ClearExpiredLocks(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE posts
		SET currently_editing_by = NULL,
			editing_started_at = NULL
		WHERE currently_editing_by IS NOT NULL
			AND editing_started_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

// MarkExternalScheduled records a confirmed remote job. platforms_scheduled
// only grows: the platform is appended once and never removed here.
func (r *postRepository) MarkExternalScheduled(ctx context.Context, postID int64, platform, remoteJobID string) error {
	query := `
		UPDATE posts
		SET external_status = $1,
			external_post_id = $2,
			platforms_scheduled = CASE
				WHEN $3 = ANY(platforms_scheduled) THEN platforms_scheduled
				ELSE array_append(platforms_scheduled, $3)
			END,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.ExternalStatusScheduled, remoteJobID,
		platform, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.ClientID, &post.ProjectID, &post.Caption,
		&post.MediaReference, &post.Notes, &post.Status, &post.ApprovalStatus,
		&post.NeedsReapproval, &post.OriginalCaption, &post.CurrentlyEditingBy,
		&post.EditingStartedAt, &post.ScheduledDate, &post.ScheduledTime,
		&post.PlatformsScheduled, &post.ExternalStatus, &post.ExternalPostID,
		&post.EditCount, &post.LastEditedAt, &post.LastEditedBy,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}
