package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relayne/postdeck/internal/models"
)

type PlatformAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.PlatformAccount, error)
	Create(ctx context.Context, account *models.PlatformAccount) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type platformAccountRepository struct {
	db *sql.DB
}

func NewPlatformAccountRepository(db *sql.DB) PlatformAccountRepository {
	return &platformAccountRepository{db: db}
}

const platformAccountColumns = `id, user_id, client_id, platform, account_id, account_name,
		account_username, access_token, account_status, created_at, updated_at`

func (r *platformAccountRepository) GetByID(ctx context.Context, id int64) (*models.PlatformAccount, error) {
	query := `SELECT ` + platformAccountColumns + ` FROM platform_accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var a models.PlatformAccount
	err := row.Scan(&a.ID, &a.UserID, &a.ClientID, &a.Platform, &a.AccountID, &a.AccountName,
		&a.AccountUsername, &a.AccessToken, &a.AccountStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &a, nil
}

func (r *platformAccountRepository) Create(ctx context.Context, account *models.PlatformAccount) (int64, error) {
	query := `
		INSERT INTO platform_accounts (user_id, client_id, platform, account_id, account_name,
			account_username, access_token, account_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, account.UserID, account.ClientID, account.Platform,
		account.AccountID, account.AccountName, account.AccountUsername, account.AccessToken,
		account.AccountStatus).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *platformAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformAccount, error) {
	query := `SELECT ` + platformAccountColumns + ` FROM platform_accounts WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.PlatformAccount
	for rows.Next() {
		var a models.PlatformAccount
		err := rows.Scan(&a.ID, &a.UserID, &a.ClientID, &a.Platform, &a.AccountID, &a.AccountName,
			&a.AccountUsername, &a.AccessToken, &a.AccountStatus, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (r *platformAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM platform_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *platformAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM platform_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
