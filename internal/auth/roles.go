package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// RequireAuthenticated ensures a caller is authenticated.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the actor has one of the allowed roles.
func RequireRole(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		for _, role := range actor.Roles {
			if _, exists := allowedSet[role]; exists {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
