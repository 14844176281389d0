package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/identity"
)

// SessionResolver maps a bearer credential to the signed-in account.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (identity.User, error)
}

// RequireSession rejects requests without a valid authenticated session and
// stores the account on the request for downstream handlers.
func RequireSession(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return apperr.New(apperr.KindUnauthorized, "Missing bearer token")
		}
		user, err := resolver.Resolve(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return err
		}
		identity.WithUser(c, user)
		return c.Next()
	}
}

// RequireAdmin allows only operators. It must run after RequireSession.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := identity.UserFrom(c)
		if !ok {
			return apperr.New(apperr.KindUnauthorized, "Missing bearer token")
		}
		if user.Role != identity.RoleAdmin {
			return apperr.New(apperr.KindForbidden, "Admin access required")
		}
		return c.Next()
	}
}
