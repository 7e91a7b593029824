package transfer

import "time"

type EditingRequest struct {
	PostID   int64 `json:"post_id"`
	ClientID int64 `json:"client_id"`
	Force    bool  `json:"force,omitempty"`
}

// LockState is returned on a successful acquire.
type LockState struct {
	Holder         int64     `json:"holder"`
	LockStartedAt  time.Time `json:"lock_started_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// EditingStatus is the read-only view of a post's lock.
type EditingStatus struct {
	IsActive bool   `json:"is_active"`
	Holder   *int64 `json:"holder,omitempty"`
	CanEdit  bool   `json:"can_edit"`
	Status   string `json:"status"`
}
