package handler

import (
	"net/http"

	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// YearsResponse lists the years that have statements
type YearsResponse struct {
	Years []int `json:"years"`
}

// GetSummary godoc
// @Summary Get the dashboard summary
// @Description Monthly series, yearly totals and trend cards. Defaults to the latest year with data.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year"
// @Success 200 {object} domain.DashboardSummary
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	year, err := parseYearParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid year format", []ValidationError{{Field: "year", Message: "Must be a valid integer"}})
	}

	summary, err := h.dashboardService.GetSummary(c.Request().Context(), userID, year)
	if err != nil {
		return respondError(c, err, "Failed to get dashboard summary")
	}

	return c.JSON(http.StatusOK, summary)
}

// GetYears godoc
// @Summary List statement years
// @Description Distinct years the user has statements for, newest first
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} YearsResponse
// @Failure 401 {object} ProblemDetails
// @Router /dashboard/years [get]
func (h *DashboardHandler) GetYears(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	years, err := h.dashboardService.GetYears(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to get statement years")
	}

	return c.JSON(http.StatusOK, YearsResponse{Years: years})
}
