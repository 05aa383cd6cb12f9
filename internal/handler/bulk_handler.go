package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

type bulkTransitioner interface {
	Transition(ctx context.Context, stage models.Stage, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error)
}

// BulkHandler exposes the stage transition endpoints.
type BulkHandler struct {
	bulk   bulkTransitioner
	events eventAuthorizer
}

// NewBulkHandler constructs BulkHandler.
func NewBulkHandler(bulk bulkTransitioner, events eventAuthorizer) *BulkHandler {
	return &BulkHandler{bulk: bulk, events: events}
}

// SendOALinks godoc
// @Summary Send online assessment links
// @Description Marks the cohort ATTEMPTED at the OA stage and rejects REGISTERED participants outside it.
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body models.BulkTransitionRequest true "Cohort"
// @Success 200 {object} response.Envelope
// @Router /bulk/send-oa-links [post]
func (h *BulkHandler) SendOALinks(c *gin.Context) {
	h.transition(c, models.StageOA)
}

// ScheduleInterviews godoc
// @Summary Schedule interviews
// @Description Marks the cohort ATTEMPTED at the interview stage and rejects REGISTERED or ATTEMPTED participants outside it.
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body models.BulkTransitionRequest true "Cohort"
// @Success 200 {object} response.Envelope
// @Router /bulk/schedule-interviews [post]
func (h *BulkHandler) ScheduleInterviews(c *gin.Context) {
	h.transition(c, models.StageInterview)
}

// FinalSelection godoc
// @Summary Final selection
// @Description Selects the cohort and rejects every other non-terminal participant.
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body models.BulkTransitionRequest true "Cohort"
// @Success 200 {object} response.Envelope
// @Router /bulk/final-selection [post]
func (h *BulkHandler) FinalSelection(c *gin.Context) {
	h.transition(c, models.StageFinalSelection)
}

func (h *BulkHandler) transition(c *gin.Context, stage models.Stage) {
	var req models.BulkTransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.EventID != "" && !authorizeEvent(c, h.events, req.EventID) {
		return
	}
	result, err := h.bulk.Transition(c.Request.Context(), stage, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
