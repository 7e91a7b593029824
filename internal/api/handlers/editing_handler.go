package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/relayne/postdeck/internal/service"
	"github.com/relayne/postdeck/internal/transfer"
)

type EditingHandler struct {
	s service.EditingService
}

func NewEditingHandler(s service.EditingService) *EditingHandler {
	return &EditingHandler{s: s}
}

func (h *EditingHandler) StartEditing(c *fiber.Ctx) error {
	actorID := GetUserID(c)

	var req transfer.EditingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	lock, err := h.s.Acquire(c.Context(), req.PostID, req.ClientID, actorID, req.Force)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(lock)
}

func (h *EditingHandler) StopEditing(c *fiber.Ctx) error {
	actorID := GetUserID(c)

	var req transfer.EditingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	if err := h.s.Release(c.Context(), req.PostID, req.ClientID, actorID, req.Force); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *EditingHandler) EditingStatus(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	postID := int64(c.QueryInt("post_id", 0))
	clientID := int64(c.QueryInt("client_id", 0))

	status, err := h.s.Status(c.Context(), postID, clientID, actorID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status)
}
