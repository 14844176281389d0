package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/payments"
	"github.com/vaultline/vaultline/internal/payout"
)

// RegisterPaymentRoutes wires receipt submission behind the idempotency guard.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idempotency fiber.Handler) {
	r.Post("/payments/receipts", idempotency, h.SubmitReceipt)
}

// RegisterPayoutRoutes wires the customer view of the payout instructions.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler) {
	r.Get("/payout-instructions", h.Get)
}
