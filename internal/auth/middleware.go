package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Credential *domain.Credential
	Claims     domain.TokenClaims
}

// credentialLoader is the subset of the credential repository the middleware
// needs. Defined at point of use so tests can inject a fake.
type credentialLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
}

// Middleware validates bearer tokens and loads the credential behind them.
type Middleware struct {
	tokens      *TokenManager
	credentials credentialLoader
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, credentials credentialLoader) *Middleware {
	return &Middleware{tokens: tokens, credentials: credentials}
}

// Handle enforces authentication for protected routes. A token whose subject
// credential no longer exists or was never verified is rejected the same way
// as a bad signature.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	credential, err := m.credentials.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}
	if !credential.IsVerified {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{Credential: credential, Claims: claims.DomainClaims()})
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
