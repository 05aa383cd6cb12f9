package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/middleware"
	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*models.AdminDashboard, bool, error)
	Company(ctx context.Context, companyID string, actor service.Actor) (*models.CompanyDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Admin godoc
// @Summary Placement overview
// @Description Directory totals, participation funnel, department placement rates and events still open for registration.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithTiming(c, summary, cacheHit, start)
}

// Company godoc
// @Summary Company drive overview
// @Description Company accounts see their own drives. Admins pass companyId.
// @Tags Dashboard
// @Produce json
// @Param companyId query string false "Company ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/company [get]
func (h *DashboardHandler) Company(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	companyID := strings.TrimSpace(c.Query("companyId"))
	if actor.Role == models.RoleCompany && companyID == "" {
		companyID = actor.ReferenceID
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Company(c.Request.Context(), companyID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithTiming(c, summary, cacheHit, start)
}

func respondWithTiming(c *gin.Context, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processingTimeMs"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
