package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:       uuid.New(),
		UserName: "reporter",
		Roles:    []string{domain.RoleEmployee, domain.RoleERP},
		Claims:   map[string]string{"region": "emea"},
	}
}

func newManager(ttl time.Duration) *TokenManager {
	return NewTokenManager("test-secret", "incident-service", "incident-service-clients", ttl)
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	mgr := newManager(time.Hour)
	user := testUser()

	token, expiresAt, err := mgr.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := mgr.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "reporter", claims.UserName)
	assert.Equal(t, []string{domain.RoleEmployee, domain.RoleERP}, claims.Roles)
	assert.Equal(t, "emea", claims.Extra["region"])
	assert.Equal(t, "incident-service", claims.Issuer)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	mgr := newManager(time.Hour)

	token, _, err := mgr.GenerateAccessToken(testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = mgr.ParseToken(tampered)
	require.Error(t, err)
	_, err = mgr.ParseExpiredToken(tampered)
	require.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := newManager(time.Hour).GenerateAccessToken(testUser())
	require.NoError(t, err)

	other := NewTokenManager("different-secret", "incident-service", "incident-service-clients", time.Hour)
	_, err = other.ParseToken(token)
	require.Error(t, err)
	_, err = other.ParseExpiredToken(token)
	require.Error(t, err)
}

func TestExpiredTokenOnlyValidForRefreshFlow(t *testing.T) {
	mgr := newManager(time.Nanosecond)

	token, _, err := mgr.GenerateAccessToken(testUser())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	verifier := newManager(time.Hour)
	_, err = verifier.ParseToken(token)
	require.Error(t, err)

	claims, err := verifier.ParseExpiredToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reporter", claims.UserName)
}

func TestParseExpiredTokenStillChecksIssuerAndAudience(t *testing.T) {
	user := testUser()

	wrongIssuer := NewTokenManager("test-secret", "someone-else", "incident-service-clients", time.Hour)
	token, _, err := wrongIssuer.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = newManager(time.Hour).ParseExpiredToken(token)
	require.Error(t, err)

	wrongAudience := NewTokenManager("test-secret", "incident-service", "other-clients", time.Hour)
	token, _, err = wrongAudience.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = newManager(time.Hour).ParseExpiredToken(token)
	require.Error(t, err)
}

func TestGenerateRefreshTokenIsOpaqueAndUnique(t *testing.T) {
	first, err := GenerateRefreshToken()
	require.NoError(t, err)
	second, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	// 32 random bytes base64-encoded.
	assert.Len(t, first, 44)
	// No claims inside; it must not parse as a JWT.
	mgr := newManager(time.Hour)
	_, err = mgr.ParseExpiredToken(first)
	require.Error(t, err)
}
