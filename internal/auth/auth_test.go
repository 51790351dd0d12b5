package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func TestTokenRoundTripYieldsActor(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	token, _, err := tokens.GenerateToken(domain.Actor{ID: "sup-1", Role: domain.RoleSupervisor})
	require.NoError(t, err)

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "sup-1", Role: domain.RoleSupervisor}, claims.Actor())
}

func TestParseRejectsForeignSecretAndSystemRole(t *testing.T) {
	token, _, err := NewTokenManager("other", 5).GenerateToken(domain.Actor{ID: "x", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 5).ParseToken(token)
	assert.Error(t, err)

	tokens := NewTokenManager("secret", 5)
	token, _, err = tokens.GenerateToken(domain.SystemActor)
	require.NoError(t, err)
	_, err = tokens.ParseToken(token)
	assert.Error(t, err)
}

func newTestApp(tokens *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(tokens)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, _ := ActorFromContext(c)
		return c.SendString(actor.ID)
	})
	app.Get("/admin", mw.Handle, RequireElevated(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestMiddlewareAndRoleGuards(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	app := newTestApp(tokens)

	studentToken, _, err := tokens.GenerateToken(domain.Actor{ID: "stu-1", Role: domain.RoleStudent})
	require.NoError(t, err)
	adminToken, _, err := tokens.GenerateToken(domain.Actor{ID: "adm-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		path   string
		header string
		status int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "Basic abc", http.StatusUnauthorized},
		{"/me", "Bearer garbage", http.StatusUnauthorized},
		{"/me", "Bearer " + studentToken, http.StatusOK},
		{"/admin", "Bearer " + studentToken, http.StatusForbidden},
		{"/admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, "%s %s", tc.path, tc.header)
	}
}

func TestParseEnforcesIssuer(t *testing.T) {
	pinned := NewTokenManager("secret", 5, WithIssuer("idp.school"))
	token, _, err := pinned.GenerateToken(domain.Actor{ID: "stu-1", Role: domain.RoleStudent})
	require.NoError(t, err)

	_, err = pinned.ParseToken(token)
	assert.NoError(t, err)

	unpinned, _, err := NewTokenManager("secret", 5).GenerateToken(domain.Actor{ID: "stu-1", Role: domain.RoleStudent})
	require.NoError(t, err)
	_, err = pinned.ParseToken(unpinned)
	assert.Error(t, err)
}
