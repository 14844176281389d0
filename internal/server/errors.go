package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/middleware"
)

const unexpectedMessage = "Something went wrong"

// ErrorHandler renders every error as {"success": false, "message": ...}.
// Classified errors keep their user-facing message; anything else is logged
// and reported as a generic 500.
func ErrorHandler(baseLogger zerolog.Logger) fiber.ErrorHandler {
	logger := baseLogger.With().Str("component", "http").Logger()
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := unexpectedMessage

		var appErr *apperr.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = apperr.Status(appErr.Kind)
			if appErr.Kind != apperr.KindUnexpected {
				message = appErr.Message
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
	}
}
