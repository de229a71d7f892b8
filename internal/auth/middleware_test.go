package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

type stubLoader struct {
	credentials map[string]*domain.Credential
}

func (s *stubLoader) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	cred, ok := s.credentials[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cred, nil
}

func newProtectedApp(t *testing.T, tm *TokenManager, loader credentialLoader) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"message": de.Message})
		},
	})
	mw := NewMiddleware(tm, loader)
	app.Get("/protected", mw.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(principal.Credential.Email)
	})
	return app
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	loader := &stubLoader{credentials: map[string]*domain.Credential{
		"cred-1": {ID: "cred-1", Email: "user@example.com", IsVerified: true},
	}}
	app := newProtectedApp(t, tm, loader)

	token, _, err := tm.GenerateToken("cred-1", "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejections(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	loader := &stubLoader{credentials: map[string]*domain.Credential{
		"cred-1":          {ID: "cred-1", Email: "user@example.com", IsVerified: true},
		"cred-unverified": {ID: "cred-unverified", Email: "new@example.com", IsVerified: false},
	}}
	app := newProtectedApp(t, tm, loader)

	validToken, _, err := tm.GenerateToken("cred-1", "user@example.com")
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken("cred-gone", "ghost@example.com")
	require.NoError(t, err)
	unverifiedToken, _, err := tm.GenerateToken("cred-unverified", "new@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer scheme", "Basic " + validToken},
		{"garbage token", "Bearer not.a.jwt"},
		{"subject no longer exists", "Bearer " + ghostToken},
		{"subject not verified", "Bearer " + unverifiedToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
