package handlers

import (
	"librahub/internal/core/services"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles admin dashboard endpoints
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Admin handles the admin dashboard
// @Summary Admin dashboard
// @Description Catalog and loan statistics, popular books and low stock books
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	data, err := h.dashboard.GetAdminDashboard(c.Context())
	if err != nil {
		return domainError(c, err)
	}
	return response.Success(c, "Dashboard retrieved successfully", data)
}
