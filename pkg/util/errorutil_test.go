package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	err := NewForbidden("insufficient role")

	mapped := ToDomainError(err)
	require.NotNil(t, mapped)
	assert.Equal(t, "FORBIDDEN", mapped.Code)
	assert.Equal(t, http.StatusForbidden, mapped.HTTPStatus)
}

func TestToDomainErrorMapsFiberStatuses(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, "UNAUTHORIZED"},
		{http.StatusForbidden, "FORBIDDEN"},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusMethodNotAllowed, "VALIDATION_FAILED"},
		{http.StatusBadGateway, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		mapped := ToDomainError(fiber.NewError(tc.status, "boom"))
		require.NotNil(t, mapped, "status %d", tc.status)
		assert.Equal(t, tc.code, mapped.Code, "status %d", tc.status)
		assert.Equal(t, tc.status, mapped.HTTPStatus)
	}
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("load incident: %w", pgx.ErrNoRows))
	require.NotNil(t, mapped)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	mapped := ToDomainError(errors.New("disk on fire"))
	require.NotNil(t, mapped)
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
}
