package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/relayne/postdeck/internal/apperr"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return fiber.StatusConflict
	case apperr.KindQuotaExceeded:
		return fiber.StatusTooManyRequests
	case apperr.KindSubscriptionInactive:
		return fiber.StatusPaymentRequired
	case apperr.KindUpstream, apperr.KindPartial:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// RespondError maps a taxonomy error to its HTTP status and merges the
// structured detail (lock holder, shortfall, remote job id) into the body.
func RespondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)

	payload := fiber.Map{
		"error":  err.Error(),
		"reason": kind.String(),
	}
	for k, v := range apperr.MetaOf(err) {
		payload[k] = v
	}

	return c.Status(statusForKind(kind)).JSON(payload)
}
