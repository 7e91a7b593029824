package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/relayne/postdeck/internal/service"
)

type ClientHandler struct {
	s service.ClientService
}

func NewClientHandler(s service.ClientService) *ClientHandler {
	return &ClientHandler{s: s}
}

func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	clientID, err := h.s.Create(c.Context(), userID, body.Name, body.Timezone)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"client_id": clientID,
	})
}

func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	userID := GetUserID(c)

	clients, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(clients)
}
