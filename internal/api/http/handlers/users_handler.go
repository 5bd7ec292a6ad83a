package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// UsersHandler exposes account listing for assignment pickers.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// List GET /users. An optional role query narrows the result, e.g. ?role=ERP
// to populate an assignee picker.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	var role *string
	if val := c.Query("role"); val != "" {
		role = &val
	}

	users, err := h.users.List(c.UserContext(), role)
	if err != nil {
		return apperrors.MapError(err)
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.UserResponse{
			ID:       user.ID.String(),
			UserName: user.UserName,
			Email:    user.Email,
			IsActive: user.IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
