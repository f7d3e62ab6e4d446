package handlers

import (
	"errors"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"
	"librahub/internal/core/services"
	"librahub/internal/pkg/pagination"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user account endpoints
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles getting the calling user's profile
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.users.GetProfile(c.Context(), identity)
	if err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Profile retrieved successfully", user.ToResponse())
}

// List handles listing users (admin only)
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	users, total, err := h.users.List(c.Context(), identity, params.Offset, params.Limit)
	if err != nil {
		return domainError(c, err)
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, user.ToResponse())
	}

	return response.Success(c, "Users retrieved successfully",
		pagination.NewResponse(responses, params, total))
}

// UpdateRoleRequest represents role update body
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole handles changing a user's role (admin only)
// @Summary Update user role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body UpdateRoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.users.UpdateRole(c.Context(), identity, userID, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCannotChangeOwnRole):
			return response.BadRequest(c, "Cannot change your own role")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Role must be USER or ADMIN")
		default:
			return domainError(c, err)
		}
	}

	return response.Success(c, "Role updated successfully", user.ToResponse())
}

// SetActiveRequest represents account activation body
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles activating or deactivating an account (admin only)
// @Summary Activate or deactivate user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetActiveRequest true "Activation flag"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/active [patch]
func (h *UserHandler) SetActive(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.users.SetActive(c.Context(), identity, userID, req.IsActive)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "User updated successfully", user.ToResponse())
}
