package handlers

import (
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns the clinic dashboard
// @Summary Clinic dashboard
// @Description Issued prescription count and total payments (one snapshot), plus patient, pending and queue counters
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=services.DashboardData}
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetDashboard(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// GetMetrics returns only the issued/payment aggregate
// @Summary Dashboard metrics
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.DashboardMetrics}
// @Router /dashboard/metrics [get]
func (h *DashboardHandler) GetMetrics(c *fiber.Ctx) error {
	metrics, err := h.dashboardService.Metrics(c.UserContext(), middleware.GetScope(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Metrics retrieved successfully", metrics)
}
