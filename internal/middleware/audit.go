package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
)

// Audit emits a structured log line for each request/response lifecycle.
func Audit(baseLogger zerolog.Logger) fiber.Handler {
	logger := baseLogger.With().Str("component", "http").Logger()
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = apperr.Status(apperr.KindOf(err))
			}
		}

		var evt *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			evt = logger.Error().Err(err)
		case err != nil:
			evt = logger.Warn().Err(err)
		default:
			evt = logger.Info()
		}
		evt = evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start))
		if requestID := RequestIDFrom(c); requestID != "" {
			evt = evt.Str("request_id", requestID)
		}
		evt.Msg("request completed")
		return err
	}
}
