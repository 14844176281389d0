package payout

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes payout instruction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the current instructions, or empty instructions when none exist yet.
func (h *Handler) Get(c *fiber.Ctx) error {
	inst, found, err := h.service.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "found": found, "instructions": inst})
}

// Put replaces the instructions.
func (h *Handler) Put(c *fiber.Ctx) error {
	var req Instructions
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	saved, err := h.service.Save(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "instructions": saved})
}
