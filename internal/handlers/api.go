package handlers

import (
	"errors"

	"blockyweb/internal/actions"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// API runs one action from the JSON body and answers with its Result.
func API(d *actions.Dispatcher, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := actions.DecodeRequest(c.Body())
		var res actions.Result
		if err == nil {
			res, err = d.Dispatch(c.UserContext(), req)
		}

		var verr *actions.ValidationError
		switch {
		case err == nil:
			return c.JSON(res)
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(actions.Result{
				RC:      false,
				Message: verr.Message,
				Type:    actions.TypeDanger,
			})
		case errors.Is(err, actions.ErrUnknownAction):
			return c.Status(fiber.StatusInternalServerError).JSON(actions.ServerError)
		default:
			logger.Error("action failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(actions.ServerError)
		}
	}
}

// Health reports liveness only; it never calls the blocky API.
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
