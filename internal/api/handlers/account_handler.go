package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/relayne/postdeck/internal/service"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(s service.AccountService) *AccountHandler {
	return &AccountHandler{s: s}
}

func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		ClientID    int64  `json:"client_id"`
		Platform    string `json:"platform"`
		AccountID   string `json:"account_id"`
		AccountName string `json:"account_name"`
		Username    string `json:"username"`
		AccessToken string `json:"access_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	id, err := h.s.Connect(c.Context(), userID, body.ClientID, body.Platform,
		body.AccountID, body.AccountName, body.Username, body.AccessToken)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id": id,
	})
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) RemoveAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := int64(c.QueryInt("id", 0))

	if err := h.s.Remove(c.Context(), userID, accountID); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
