package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/auth"
)

// AuthLimits holds the throttles placed in front of the public auth endpoints.
type AuthLimits struct {
	SignIn         fiber.Handler
	VerifyPasscode fiber.Handler
	ForgotPassword fiber.Handler
	ResetPassword  fiber.Handler
}

// RegisterAuthRoutes wires the public sign-in, passcode and password reset endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, limits AuthLimits) {
	group := r.Group("/auth")
	group.Post("/sign-in", limited(limits.SignIn, h.SignIn)...)
	group.Post("/passcode/verify", limited(limits.VerifyPasscode, h.VerifyPasscode)...)
	group.Post("/password/forgot", limited(limits.ForgotPassword, h.ForgotPassword)...)
	group.Post("/password/reset", limited(limits.ResetPassword, h.ResetPassword)...)
}

func limited(limit, handler fiber.Handler) []fiber.Handler {
	if limit == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{limit, handler}
}
