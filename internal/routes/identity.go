package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/payout"
)

// RegisterIdentityRoutes wires the signed-in user's profile endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)
}

// RegisterAdminRoutes wires operator endpoints. r must already enforce the admin role.
func RegisterAdminRoutes(r fiber.Router, users *identity.Handler, payouts *payout.Handler) {
	r.Patch("/users/:email", users.UpdateAccount)
	r.Get("/payout-instructions", payouts.Get)
	r.Put("/payout-instructions", payouts.Put)
}
