package models

import (
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID                 int64          `db:"id" json:"id"`
	ClientID           int64          `db:"client_id" json:"client_id"`
	ProjectID          *int64         `db:"project_id" json:"project_id,omitempty"`
	Caption            string         `db:"caption" json:"caption"`
	MediaReference     string         `db:"media_reference" json:"media_reference"`
	Notes              string         `db:"notes" json:"notes"`
	Status             string         `db:"status" json:"status"`
	ApprovalStatus     string         `db:"approval_status" json:"approval_status"`
	NeedsReapproval    bool           `db:"needs_reapproval" json:"needs_reapproval"`
	OriginalCaption    *string        `db:"original_caption" json:"original_caption,omitempty"`
	CurrentlyEditingBy *int64         `db:"currently_editing_by" json:"currently_editing_by,omitempty"`
	EditingStartedAt   *time.Time     `db:"editing_started_at" json:"editing_started_at,omitempty"`
	ScheduledDate      string         `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime      string         `db:"scheduled_time" json:"scheduled_time"`
	PlatformsScheduled pq.StringArray `db:"platforms_scheduled" json:"platforms_scheduled"`
	ExternalStatus     string         `db:"external_status" json:"external_status"`
	ExternalPostID     string         `db:"external_post_id" json:"external_post_id"`
	EditCount          int            `db:"edit_count" json:"edit_count"`
	LastEditedAt       *time.Time     `db:"last_edited_at" json:"last_edited_at,omitempty"`
	LastEditedBy       *int64         `db:"last_edited_by" json:"last_edited_by,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduledPost is the calendar materialization of a post: a copy of the
// publishable fields taken when the post is moved into the calendar. It is
// deleted independently of the source post.
type ScheduledPost struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	ClientID       int64     `db:"client_id" json:"client_id"`
	Caption        string    `db:"caption" json:"caption"`
	MediaReference string    `db:"media_reference" json:"media_reference"`
	ScheduledDate  string    `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime  string    `db:"scheduled_time" json:"scheduled_time"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusReady     = "ready"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
	PostStatusDeleted   = "deleted"
)

const (
	ApprovalPending        = "pending"
	ApprovalApproved       = "approved"
	ApprovalRejected       = "rejected"
	ApprovalNeedsAttention = "needs_attention"
	ApprovalDraft          = "draft"
)

const ExternalStatusScheduled = "scheduled"

// Editable reports whether caption/media/notes may still change and whether
// an editing lock may be taken on the post.
func (p *Post) Editable() bool {
	switch p.Status {
	case PostStatusDraft, PostStatusReady, PostStatusScheduled:
		return true
	}
	return false
}
