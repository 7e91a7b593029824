package models

import "time"

// ScheduleLog records one publish attempt for a (post, platform account)
// pair, keyed by the remote job id once one exists. Partial rows mark
// attempts where the remote job was created but the local post update
// failed; the reconcile job picks those up.
type ScheduleLog struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	RemoteMediaURL string    `db:"remote_media_url" json:"remote_media_url"`
	RemoteJobID    string    `db:"remote_job_id" json:"remote_job_id"`
	Status         string    `db:"status" json:"status"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	ScheduleLogScheduled = "scheduled"
	ScheduleLogFailed    = "failed"
	ScheduleLogPartial   = "partial"
)
