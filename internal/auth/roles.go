package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireHandler admits staff, supervisors and admins.
func RequireHandler() fiber.Handler {
	return RequireRole(domain.RoleStaff, domain.RoleSupervisor, domain.RoleAdmin)
}

// RequireElevated admits supervisors and admins.
func RequireElevated() fiber.Handler {
	return RequireRole(domain.RoleSupervisor, domain.RoleAdmin)
}

// RequireAdmin admits admins only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
