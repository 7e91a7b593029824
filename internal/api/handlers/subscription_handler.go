package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/service"
)

type SubscriptionHandler struct {
	quota service.QuotaService
}

func NewSubscriptionHandler(quota service.QuotaService) *SubscriptionHandler {
	return &SubscriptionHandler{quota: quota}
}

func (h *SubscriptionHandler) GetSubscriptionInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	info, err := h.quota.Info(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(info)
}

// Authorize is a dry-run check against the quota gate. Refusals come back as
// 200 with allowed=false so callers can branch without parsing error bodies;
// only authentication failures keep their error status.
func (h *SubscriptionHandler) Authorize(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		ResourceKind string `json:"resource_kind"`
		Amount       int    `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}
	if body.Amount == 0 {
		body.Amount = 1
	}

	decision, err := h.quota.Authorize(c.Context(), userID, service.ResourceKind(body.ResourceKind), body.Amount)
	if err != nil {
		kind := apperr.KindOf(err)
		switch kind {
		case apperr.KindQuotaExceeded, apperr.KindSubscriptionInactive:
			payload := fiber.Map{
				"allowed": false,
				"reason":  kind.String(),
			}
			for k, v := range apperr.MetaOf(err) {
				payload[k] = v
			}
			return c.Status(fiber.StatusOK).JSON(payload)
		}
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(decision)
}
