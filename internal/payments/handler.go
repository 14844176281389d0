package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/identity"
)

// Handler exposes payment receipt endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a receipt handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type receiptRequest struct {
	PaymentMethod string `json:"payment_method"`
	ReceiptURL    string `json:"receipt_url"`
}

// SubmitReceipt forwards the signed-in user's receipt to operations.
func (h *Handler) SubmitReceipt(c *fiber.Ctx) error {
	user, ok := identity.UserFrom(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "Not signed in")
	}
	var req receiptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	err := h.service.Submit(c.UserContext(), Receipt{
		UserName:   user.DisplayName(),
		UserEmail:  user.Email,
		Method:     req.PaymentMethod,
		ReceiptURL: req.ReceiptURL,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"success": true, "message": "Receipt submitted"})
}
