package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/observability"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGuardedApp(t *testing.T) (*fiber.App, *auth.TokenManager) {
	t.Helper()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	tokens := auth.NewTokenManager("test-secret", "incident-service", "incident-clients", time.Hour)
	middleware := auth.NewAuthMiddleware(tokens)

	admin := app.Group("/admin", middleware.Handle, auth.RequireRole(domain.RoleAdmin, domain.RoleERP))
	admin.Get("", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app, tokens
}

func decodeError(t *testing.T, resp *http.Response) errorEnvelope {
	t.Helper()
	defer resp.Body.Close()

	var envelope errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func TestRoleDenialRendersForbidden(t *testing.T) {
	app, tokens := newGuardedApp(t)

	token, _, err := tokens.GenerateAccessToken(&domain.User{
		ID:       uuid.New(),
		UserName: "employee",
		Roles:    []string{domain.RoleEmployee},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	envelope := decodeError(t, resp)
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
}

func TestMissingTokenRendersUnauthorized(t *testing.T) {
	app, _ := newGuardedApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	envelope := decodeError(t, resp)
	assert.Equal(t, "UNAUTHORIZED", envelope.Error.Code)
}

func TestAllowedRolePassesGuard(t *testing.T) {
	app, tokens := newGuardedApp(t)

	token, _, err := tokens.GenerateAccessToken(&domain.User{
		ID:       uuid.New(),
		UserName: "erp",
		Roles:    []string{domain.RoleERP},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
