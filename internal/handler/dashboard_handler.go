package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
)

// DashboardHandler serves one-shot dashboard snapshots. Live updates go through the WebSocket streams.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// ProctorDashboard godoc
// GET /api/v1/proctor/dashboard
// Active sessions, recent violations, pending incidents and assigned sessions.
func (h *DashboardHandler) ProctorDashboard(c *gin.Context) {
	data, err := h.dashboardService.Proctor(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// AdminDashboard godoc
// GET /api/v1/admin/dashboard
func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	data, err := h.dashboardService.Admin(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// Monitor godoc
// GET /api/v1/proctor/sessions/:id/monitor
func (h *DashboardHandler) Monitor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	data, err := h.dashboardService.Monitor(c.Request.Context(), middleware.GetAuth(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
