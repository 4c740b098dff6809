package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// RequireAdmin ensures the principal's scope is unrestricted.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Scope.IsAdmin() {
			return apperrors.NewPermissionDenied("admin group required", map[string]any{"actor": principal.Actor()})
		}
		return c.Next()
	}
}

// RequirePrincipal ensures the caller is authenticated.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
