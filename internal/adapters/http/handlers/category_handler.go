package handlers

import (
	"librahub/internal/core/services"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler handles book category endpoints
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List handles listing all categories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Response
// @Router /categories [get]
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.Context())
	if err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Categories retrieved successfully", categories)
}

// GetByID handles getting a single category
// @Summary Get category by ID
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetByID(c *fiber.Ctx) error {
	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	category, err := h.categories.GetByID(c.Context(), categoryID)
	if err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Category retrieved successfully", category)
}

// Create handles category creation
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CategoryInput true "Category data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /categories [post]
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CategoryInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.categories.Create(c.Context(), identity, &input)
	if err != nil {
		return domainError(c, err)
	}
	return response.Created(c, "Category created successfully", category)
}

// Update handles category updates
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param body body services.CategoryInput true "Category data"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	var input services.CategoryInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.categories.Update(c.Context(), identity, categoryID, &input)
	if err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Category updated successfully", category)
}

// Delete handles category deletion
// @Summary Delete category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	categoryID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	if err := h.categories.Delete(c.Context(), identity, categoryID); err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Category deleted successfully", nil)
}
