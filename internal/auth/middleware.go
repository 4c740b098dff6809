package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// ActorKey holds the authenticated username in fiber locals for request logging.
const ActorKey = "actor"

// Principal represents the authenticated caller.
type Principal struct {
	Staff domain.StaffMember
	Scope access.Scope
}

// Actor returns the username recorded on audit events.
func (p *Principal) Actor() string {
	return p.Staff.Username
}

// PrincipalResolver loads the staff member behind a token and resolves their visibility.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, staffID string) (*Principal, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	resolver PrincipalResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, resolver PrincipalResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal, err := m.resolver.ResolvePrincipal(c.UserContext(), claims.Subject)
	if err != nil {
		if apperrors.IsNoRows(err) || apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.NewUnauthorized("staff not found")
		}
		return apperrors.MapError(err)
	}
	if !principal.Staff.Active {
		return apperrors.NewUnauthorized("account disabled")
	}

	c.Locals(principalKey, principal)
	c.Locals(ActorKey, principal.Actor())
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
