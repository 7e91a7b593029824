package service

import (
	"context"
	"log/slog"

	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
)

type ClientService interface {
	Create(ctx context.Context, userID int64, name, timezone string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Client, error)
}

type clientService struct {
	cr    repository.ClientRepository
	quota QuotaService
}

func NewClientService(cr repository.ClientRepository, quota QuotaService) ClientService {
	return &clientService{cr: cr, quota: quota}
}

// Create adds a managed client for the tenant, metered against max_clients.
func (s *clientService) Create(ctx context.Context, userID int64, name, timezone string) (int64, error) {
	if name == "" {
		return 0, apperr.New(apperr.KindValidation, "client name cannot be empty")
	}
	if timezone == "" {
		timezone = "UTC"
	}

	if _, err := s.quota.Authorize(ctx, userID, ResourceClients, 1); err != nil {
		return 0, err
	}

	client := models.Client{
		UserID:   userID,
		Name:     name,
		Timezone: timezone,
	}
	clientID, err := s.cr.Create(ctx, &client)
	if err != nil {
		return 0, err
	}

	if err := s.quota.RecordUsage(ctx, userID, ResourceClients, 1); err != nil {
		slog.Error("failed to record client usage", "user_id", userID, "error", err)
	}

	return clientID, nil
}

func (s *clientService) List(ctx context.Context, userID int64) ([]*models.Client, error) {
	return s.cr.ListByUserID(ctx, userID)
}
