package transfer

type PostCreation struct {
	ClientID         int64  `json:"client_id"`
	ProjectID        *int64 `json:"project_id,omitempty"`
	Caption          string `json:"caption"`
	Notes            string `json:"notes"`
	ScheduledDate    string `json:"scheduled_date"`
	ScheduledTime    string `json:"scheduled_time"`
	SelectedAccounts string `json:"selected_accounts"`
}

type PostUpdate struct {
	PostID         int64   `json:"post_id"`
	ClientID       int64   `json:"client_id"`
	Caption        *string `json:"caption,omitempty"`
	MediaReference *string `json:"media_reference,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type PostSchedule struct {
	PostID        int64  `json:"post_id"`
	ClientID      int64  `json:"client_id"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
}

type CaptionAssist struct {
	PostID int64  `json:"post_id"`
	Draft  string `json:"draft"`
	Tone   string `json:"tone"`
}
