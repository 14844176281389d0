package identity

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/apperr"
)

const userLocalsKey = "identity.user"

// WithUser stores the signed-in user on the request.
func WithUser(c *fiber.Ctx, user User) {
	c.Locals(userLocalsKey, user)
}

// UserFrom returns the signed-in user stored by the session middleware.
func UserFrom(c *fiber.Ctx) (User, bool) {
	user, ok := c.Locals(userLocalsKey).(User)
	return user, ok
}

// Handler exposes profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a profile handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type profileResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Role               string     `json:"role"`
	FirstName          string     `json:"first_name"`
	MiddleName         string     `json:"middle_name"`
	LastName           string     `json:"last_name"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	State              string     `json:"state"`
	Country            string     `json:"country"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	Gender             string     `json:"gender"`
	Occupation         string     `json:"occupation"`
	Employer           string     `json:"employer"`
	MaritalStatus      string     `json:"marital_status"`
	SSN                string     `json:"ssn"`
	AccountNumber      string     `json:"account_number"`
	AccountType        string     `json:"account_type"`
	BalanceCents       int64      `json:"balance_cents"`
	Currency           string     `json:"currency"`
	IsVerified         bool       `json:"is_verified"`
	KYCLevel           string     `json:"kyc_level"`
	HasPaidTransferFee bool       `json:"has_paid_transfer_fee"`
	ProfileImageURL    string     `json:"profile_image_url"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toProfile(u User) profileResponse {
	return profileResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Phone:              u.Phone,
		Role:               u.Role,
		FirstName:          u.FirstName,
		MiddleName:         u.MiddleName,
		LastName:           u.LastName,
		Address:            u.Address,
		City:               u.City,
		State:              u.State,
		Country:            u.Country,
		DateOfBirth:        u.DateOfBirth,
		Gender:             u.Gender,
		Occupation:         u.Occupation,
		Employer:           u.Employer,
		MaritalStatus:      u.MaritalStatus,
		SSN:                u.MaskedSSN(),
		AccountNumber:      u.AccountNumber,
		AccountType:        u.AccountType,
		BalanceCents:       u.BalanceCents,
		Currency:           u.Currency,
		IsVerified:         u.IsVerified,
		KYCLevel:           u.KYCLevel,
		HasPaidTransferFee: u.HasPaidTransferFee,
		ProfileImageURL:    u.ProfileImageURL,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// Me returns the signed-in user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := UserFrom(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "Not signed in")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "user": toProfile(user)})
}

// UpdateMe applies a partial profile update for the signed-in user.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user, ok := UserFrom(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "Not signed in")
	}
	var req ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.service.UpdateProfile(c.UserContext(), user.Email, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "user": toProfile(updated)})
}

// UpdateAccount lets an operator change the account-level fields of a user.
func (h *Handler) UpdateAccount(c *fiber.Ctx) error {
	var req AccountUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.service.UpdateAccount(c.UserContext(), c.Params("email"), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "user": toProfile(updated)})
}
