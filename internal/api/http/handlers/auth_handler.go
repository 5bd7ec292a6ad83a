package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// AuthHandler exposes registration, login and token refresh.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("user_name, email, password required", nil)
	}

	user, err := h.auth.Register(c.UserContext(), req.UserName, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.UserResponse{
			ID:       user.ID.String(),
			UserName: user.UserName,
			Email:    user.Email,
			IsActive: user.IsActive,
			Roles:    user.Roles,
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(result)})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return apperrors.NewValidationError("access_token and refresh_token required", nil)
	}

	result, err := h.auth.Refresh(c.UserContext(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(result)})
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:        result.Token,
		ExpiresAt:    result.ExpiresAt,
		RefreshToken: result.RefreshToken,
		UserName:     result.UserName,
		Roles:        result.Roles,
	}
}
