package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relayne/postdeck/internal/models"
)

type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Client, error)
	CheckByUserID(ctx context.Context, clientID, userID int64) (bool, error)
}

type clientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT id, user_id, name, timezone, created_at, updated_at FROM clients WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var c models.Client
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Timezone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &c, nil
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) (int64, error) {
	query := `INSERT INTO clients (user_id, name, timezone) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, client.UserID, client.Name, client.Timezone).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *clientRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Client, error) {
	query := `SELECT id, user_id, name, timezone, created_at, updated_at FROM clients WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Timezone, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (r *clientRepository) CheckByUserID(ctx context.Context, clientID, userID int64) (bool, error) {
	query := "SELECT 1 FROM clients WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, clientID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
