package handler

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the user and back-office dashboards.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// UserAnalytics godoc
// GET /api/me/analytics
func (h *AnalyticsHandler) UserAnalytics(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	data, err := h.analyticsService.User(c.Request.Context(), ident.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}

// AdminDashboard godoc
// GET /api/admin/dashboard
func (h *AnalyticsHandler) AdminDashboard(c *gin.Context) {
	data, err := h.analyticsService.Admin(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
