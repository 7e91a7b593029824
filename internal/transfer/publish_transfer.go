package transfer

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePartial   = "partial"
)

// PublishOutcome is the per-(post, account) result of one pipeline run.
// Partial means the remote job exists but the local post does not reflect it;
// RemoteJobID is carried so the attempt can be reconciled.
type PublishOutcome struct {
	PostID      int64  `json:"post_id"`
	AccountID   int64  `json:"account_id"`
	Status      string `json:"status"`
	RemoteJobID string `json:"remote_job_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type BatchSummary struct {
	Succeeded []int64          `json:"succeeded"`
	Failed    []int64          `json:"failed"`
	Partial   []int64          `json:"partial"`
	Outcomes  []PublishOutcome `json:"outcomes"`
}
