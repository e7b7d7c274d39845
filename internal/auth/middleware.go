package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Exactly one of User or
// Agent is set, matching SubjectType.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Agent       *domain.Agent
	Role        *domain.AgentRole
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	agents repository.AgentRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, agents repository.AgentRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, agents: agents}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal, err := m.resolvePrincipal(c.Context(), claims)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// resolvePrincipal loads the live account behind the claims so revoked or
// suspended principals lose access immediately, not at token expiry.
func (m *AuthMiddleware) resolvePrincipal(ctx context.Context, claims *Claims) (*Principal, error) {
	principal := &Principal{SubjectType: claims.Subject, Role: claims.Role}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewUnauthorized("user not found")
			}
			return nil, apperrors.MapError(err)
		}
		if !user.IsActive() {
			return nil, apperrors.NewForbidden("account suspended")
		}
		principal.User = user
	case domain.SubjectTypeAgent:
		agent, err := m.agents.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewUnauthorized("agent not found")
			}
			return nil, apperrors.MapError(err)
		}
		principal.Agent = agent
	default:
		return nil, apperrors.NewUnauthorized("unknown subject")
	}

	return principal, nil
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
