package models

import (
	"time"
)

// Limit value -1 on any max column means unlimited.
const UnlimitedLimit = -1

type Subscription struct {
	ID                     int64      `db:"id" json:"id"`
	UserID                 int64      `db:"user_id" json:"user_id"`
	PlanName               string     `db:"plan_name" json:"plan_name"`
	Status                 string     `db:"status" json:"status"`
	TrialEndsAt            *time.Time `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	PostsUsedThisMonth     int        `db:"posts_used_this_month" json:"posts_used_this_month"`
	MaxPostsPerMonth       int        `db:"max_posts_per_month" json:"max_posts_per_month"`
	AICreditsUsedThisMonth int        `db:"ai_credits_used_this_month" json:"ai_credits_used_this_month"`
	MaxAICreditsPerMonth   int        `db:"max_ai_credits_per_month" json:"max_ai_credits_per_month"`
	AICreditsPurchased     int        `db:"ai_credits_purchased" json:"ai_credits_purchased"`
	ClientsUsed            int        `db:"clients_used" json:"clients_used"`
	MaxClients             int        `db:"max_clients" json:"max_clients"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
)

// Usable reports whether the subscription authorizes metered actions at all:
// it must be active, or trialing with the trial period not yet elapsed.
func (s *Subscription) Usable(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive:
		return true
	case SubscriptionTrialing:
		return s.TrialEndsAt == nil || now.Before(*s.TrialEndsAt)
	}
	return false
}
