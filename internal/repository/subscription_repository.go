package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/relayne/postdeck/internal/models"
)

type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error)
	Create(ctx context.Context, subscription *models.Subscription) (int64, error)
	IncrementPostsUsed(ctx context.Context, userID int64, amount int) error
	IncrementClientsUsed(ctx context.Context, userID int64, amount int) error
	ConsumeAICredits(ctx context.Context, userID int64, fromPurchased, fromMonthly int) error
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	var s models.Subscription
	query := `SELECT id, user_id, plan_name, status, trial_ends_at,
			posts_used_this_month, max_posts_per_month,
			ai_credits_used_this_month, max_ai_credits_per_month, ai_credits_purchased,
			clients_used, max_clients, created_at, updated_at
		FROM subscriptions WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.ID, &s.UserID, &s.PlanName,
		&s.Status, &s.TrialEndsAt, &s.PostsUsedThisMonth, &s.MaxPostsPerMonth,
		&s.AICreditsUsedThisMonth, &s.MaxAICreditsPerMonth, &s.AICreditsPurchased,
		&s.ClientsUsed, &s.MaxClients, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) (int64, error) {
	query := `
		INSERT INTO subscriptions (user_id, plan_name, status, trial_ends_at,
			max_posts_per_month, max_ai_credits_per_month, ai_credits_purchased, max_clients)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, subscription.UserID, subscription.PlanName,
		subscription.Status, subscription.TrialEndsAt, subscription.MaxPostsPerMonth,
		subscription.MaxAICreditsPerMonth, subscription.AICreditsPurchased,
		subscription.MaxClients).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *subscriptionRepository) IncrementPostsUsed(ctx context.Context, userID int64, amount int) error {
	query := `
		UPDATE subscriptions
		SET posts_used_this_month = posts_used_this_month + $1,
			updated_at = $2
		WHERE user_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, amount, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *subscriptionRepository) IncrementClientsUsed(ctx context.Context, userID int64, amount int) error {
	query := `
		UPDATE subscriptions
		SET clients_used = clients_used + $1,
			updated_at = $2
		WHERE user_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, amount, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ConsumeAICredits applies one AI usage split: the purchased balance is drawn
// down first, the remainder counts against the monthly counter.
func (r *subscriptionRepository) ConsumeAICredits(ctx context.Context, userID int64, fromPurchased, fromMonthly int) error {
	query := `
		UPDATE subscriptions
		SET ai_credits_purchased = ai_credits_purchased - $1,
			ai_credits_used_this_month = ai_credits_used_this_month + $2,
			updated_at = $3
		WHERE user_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, fromPurchased, fromMonthly, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
