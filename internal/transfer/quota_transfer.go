package transfer

type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	ActorID int64  `json:"actor_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type SubscriptionInfo struct {
	PlanName               string `json:"plan_name"`
	Status                 string `json:"status"`
	PostsUsedThisMonth     int    `json:"posts_used_this_month"`
	MaxPostsPerMonth       int    `json:"max_posts_per_month"`
	AICreditsUsedThisMonth int    `json:"ai_credits_used_this_month"`
	MaxAICreditsPerMonth   int    `json:"max_ai_credits_per_month"`
	AICreditsPurchased     int    `json:"ai_credits_purchased"`
	ClientsUsed            int    `json:"clients_used"`
	MaxClients             int    `json:"max_clients"`
}
