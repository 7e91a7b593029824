package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/transfer"
)

type ResourceKind string

const (
	ResourceAICredits ResourceKind = "ai_credits"
	ResourcePosts     ResourceKind = "posts"
	ResourceClients   ResourceKind = "clients"
)

// QuotaService authorizes metered actions against the tenant's subscription
// and records usage after they complete. Recording is fire-and-forget: a
// failed RecordUsage is logged by the caller, never rolled back into the
// completed action.
type QuotaService interface {
	Authorize(ctx context.Context, userID int64, kind ResourceKind, amount int) (*transfer.QuotaDecision, error)
	RecordUsage(ctx context.Context, userID int64, kind ResourceKind, amount int) error
	Info(ctx context.Context, userID int64) (*transfer.SubscriptionInfo, error)
}

type quotaService struct {
	sr repository.SubscriptionRepository
}

func NewQuotaService(sr repository.SubscriptionRepository) QuotaService {
	return &quotaService{sr: sr}
}

func (s *quotaService) Authorize(ctx context.Context, userID int64, kind ResourceKind, amount int) (*transfer.QuotaDecision, error) {
	if userID == 0 {
		return nil, apperr.New(apperr.KindUnauthenticated, "missing or invalid actor token")
	}
	if amount <= 0 {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}

	sub, exists, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ResourceAICredits:
		if !exists {
			return nil, apperr.New(apperr.KindQuotaExceeded, "no AI credits available").
				With("shortfall", amount)
		}
		if !sub.Usable(time.Now()) {
			return nil, apperr.New(apperr.KindSubscriptionInactive, "subscription is not active")
		}
		if sub.MaxAICreditsPerMonth == models.UnlimitedLimit {
			break
		}
		available := sub.AICreditsPurchased + max(0, sub.MaxAICreditsPerMonth-sub.AICreditsUsedThisMonth)
		if available < amount {
			return nil, apperr.New(apperr.KindQuotaExceeded, "not enough AI credits").
				With("shortfall", amount-available).
				With("available", available)
		}

	case ResourcePosts:
		if !exists {
			return nil, apperr.New(apperr.KindSubscriptionInactive, "no subscription found")
		}
		if !sub.Usable(time.Now()) {
			return nil, apperr.New(apperr.KindSubscriptionInactive, "subscription is not active")
		}
		if sub.MaxPostsPerMonth != models.UnlimitedLimit && sub.PostsUsedThisMonth >= sub.MaxPostsPerMonth {
			return nil, apperr.New(apperr.KindQuotaExceeded, "monthly post limit reached").
				With("limit", sub.MaxPostsPerMonth)
		}

	case ResourceClients:
		if !exists {
			return nil, apperr.New(apperr.KindSubscriptionInactive, "no subscription found")
		}
		if !sub.Usable(time.Now()) {
			return nil, apperr.New(apperr.KindSubscriptionInactive, "subscription is not active")
		}
		if sub.MaxClients != models.UnlimitedLimit && sub.ClientsUsed >= sub.MaxClients {
			return nil, apperr.New(apperr.KindQuotaExceeded, "client limit reached").
				With("limit", sub.MaxClients)
		}

	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown resource kind %q", kind)
	}

	return &transfer.QuotaDecision{Allowed: true, ActorID: userID}, nil
}

// RecordUsage applies usage after the metered action succeeded. For AI
// credits the purchased balance is always drawn down before the monthly
// counter: purchased credits never expire, monthly credits reset.
func (s *quotaService) RecordUsage(ctx context.Context, userID int64, kind ResourceKind, amount int) error {
	if amount <= 0 {
		return apperr.New(apperr.KindValidation, "amount must be positive")
	}

	switch kind {
	case ResourceAICredits:
		sub, exists, err := s.sr.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.KindNotFound, "subscription not found")
		}

		fromPurchased := min(sub.AICreditsPurchased, amount)
		fromMonthly := amount - fromPurchased
		return s.sr.ConsumeAICredits(ctx, userID, fromPurchased, fromMonthly)

	case ResourcePosts:
		return s.sr.IncrementPostsUsed(ctx, userID, amount)

	case ResourceClients:
		return s.sr.IncrementClientsUsed(ctx, userID, amount)
	}

	return apperr.Newf(apperr.KindValidation, "unknown resource kind %q", kind)
}

func (s *quotaService) Info(ctx context.Context, userID int64) (*transfer.SubscriptionInfo, error) {
	sub, exists, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = apperr.New(apperr.KindNotFound, "subscription not found")
		slog.Info(err.Error())
		return nil, err
	}

	return &transfer.SubscriptionInfo{
		PlanName:               sub.PlanName,
		Status:                 sub.Status,
		PostsUsedThisMonth:     sub.PostsUsedThisMonth,
		MaxPostsPerMonth:       sub.MaxPostsPerMonth,
		AICreditsUsedThisMonth: sub.AICreditsUsedThisMonth,
		MaxAICreditsPerMonth:   sub.MaxAICreditsPerMonth,
		AICreditsPurchased:     sub.AICreditsPurchased,
		ClientsUsed:            sub.ClientsUsed,
		MaxClients:             sub.MaxClients,
	}, nil
}
