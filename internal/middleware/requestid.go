package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request trace identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDLocal = "request_id"

// RequestID reuses an inbound X-Request-ID or mints one, echoes it on the
// response and stores it for handlers and the error handler.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDHeader, reqID)
		c.Locals(requestIDLocal, reqID)
		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID, or "".
func RequestIDFrom(c *fiber.Ctx) string {
	reqID, _ := c.Locals(requestIDLocal).(string)
	return reqID
}
