package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/relayne/postdeck/configs"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/pkg/utils"
)

type AuthHandler struct {
	cfg config.Config
	ur  repository.UserRepository
}

func NewAuthHandler(cfg config.Config, ur repository.UserRepository) *AuthHandler {
	return &AuthHandler{cfg: cfg, ur: ur}
}

// Login finds or creates the user by email and sets the session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}

	userID, err := h.resolveUser(c.Context(), body.Email, body.Name)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "login failed",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), 7*24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "login failed",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id": userID,
	})
}

func (h *AuthHandler) resolveUser(ctx context.Context, email, name string) (int64, error) {
	user, exists, err := h.ur.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if exists {
		return user.ID, nil
	}
	return h.ur.Create(ctx, &models.User{Email: email, Name: name})
}
