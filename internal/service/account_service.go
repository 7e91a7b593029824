package service

import (
	"context"
	"log/slog"

	config "github.com/relayne/postdeck/configs"
	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/pkg/utils"
)

// AccountService manages the connected platform accounts posts are
// published to. Access tokens are encrypted at rest.
type AccountService interface {
	Connect(ctx context.Context, userID, clientID int64, platform, accountID, accountName, username, accessToken string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.PlatformAccount, error)
	Remove(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg config.Config
	pa  repository.PlatformAccountRepository
	cr  repository.ClientRepository
}

func NewAccountService(cfg config.Config, pa repository.PlatformAccountRepository, cr repository.ClientRepository) AccountService {
	return &accountService{cfg: cfg, pa: pa, cr: cr}
}

func (s *accountService) Connect(ctx context.Context, userID, clientID int64, platform, accountID, accountName, username, accessToken string) (int64, error) {
	if platform == "" || accountID == "" || accessToken == "" {
		return 0, apperr.New(apperr.KindValidation, "platform, account id and access token are required")
	}

	owned, err := s.cr.CheckByUserID(ctx, clientID, userID)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, apperr.New(apperr.KindForbidden, "client belongs to another user")
	}

	encryptedToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return 0, err
	}

	account := models.PlatformAccount{
		UserID:          userID,
		ClientID:        clientID,
		Platform:        platform,
		AccountID:       accountID,
		AccountName:     accountName,
		AccountUsername: username,
		AccessToken:     encryptedToken,
		AccountStatus:   "active",
	}

	id, err := s.pa.Create(ctx, &account)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.PlatformAccount, error) {
	return s.pa.ListByUserID(ctx, userID)
}

func (s *accountService) Remove(ctx context.Context, userID, accountID int64) error {
	exists, err := s.pa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !exists {
		err = apperr.New(apperr.KindNotFound, "platform account not found")
		slog.Info(err.Error())
		return err
	}
	return s.pa.Remove(ctx, accountID)
}
