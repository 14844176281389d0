package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/identity"
)

// Handler exposes the sign-in, passcode and password reset endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SignIn checks credentials and emails a passcode.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.SignIn(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": MsgOTPSent,
		"email":   res.Email,
		"stage":   res.Stage,
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyPasscode exchanges an emailed passcode for a session credential.
func (h *Handler) VerifyPasscode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.VerifyPasscode(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":    true,
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"stage":      res.Stage,
		"email":      res.User.Email,
	})
}

type forgotRequest struct {
	Email string `json:"email"`
}

// ForgotPassword emails a password reset passcode.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": MsgOTPSent})
}

type resetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ResetPassword replaces the password after checking the reset passcode.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": MsgPasswordUpdated})
}

// SignOut invalidates existing sessions by bumping the token version.
func (h *Handler) SignOut(c *fiber.Ctx) error {
	user, ok := identity.UserFrom(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, MsgSessionInvalid)
	}
	if err := h.svc.SignOut(c.UserContext(), user.ID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "Signed out"})
}
