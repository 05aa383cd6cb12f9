package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

type participationService interface {
	Register(ctx context.Context, req models.RegisterParticipationRequest) (*models.Participation, error)
	Get(ctx context.Context, studentID, eventID string) (*models.Participation, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.Participation, error)
	ListForEvent(ctx context.Context, eventID string) ([]models.Participation, error)
	UpdateStatus(ctx context.Context, studentID, eventID string, req models.UpdateParticipationStatusRequest) (*models.Participation, error)
}

type eventAuthorizer interface {
	Authorize(ctx context.Context, eventID string, actor service.Actor) error
}

// ParticipationHandler exposes single-record participation endpoints.
type ParticipationHandler struct {
	participations participationService
	events         eventAuthorizer
}

// NewParticipationHandler constructs ParticipationHandler.
func NewParticipationHandler(participations participationService, events eventAuthorizer) *ParticipationHandler {
	return &ParticipationHandler{participations: participations, events: events}
}

// Register godoc
// @Summary Register a student for an event
// @Description Students may only register themselves. Registration must fall inside the event window.
// @Tags Participations
// @Accept json
// @Produce json
// @Param payload body models.RegisterParticipationRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /participations [post]
func (h *ParticipationHandler) Register(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.RegisterParticipationRequest
	if !bindJSON(c, &req) {
		return
	}
	if actor.Role == models.RoleStudent && !actor.Owns(req.StudentAdmissionNumber) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students can only register themselves"))
		return
	}
	p, err := h.participations.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// ListForStudent godoc
// @Summary List a student's participations
// @Tags Participations
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Router /participations/student/{admissionNumber} [get]
func (h *ParticipationHandler) ListForStudent(c *gin.Context) {
	items, err := h.participations.ListForStudent(c.Request.Context(), c.Param("admissionNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListForEvent godoc
// @Summary List an event's participations
// @Tags Participations
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /participations/event/{eventId} [get]
func (h *ParticipationHandler) ListForEvent(c *gin.Context) {
	eventID := c.Param("eventId")
	if !h.authorizeEvent(c, eventID) {
		return
	}
	items, err := h.participations.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get one participation
// @Tags Participations
// @Produce json
// @Param eventId path string true "Event ID"
// @Param admissionNumber path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /participations/{eventId}/{admissionNumber} [get]
func (h *ParticipationHandler) Get(c *gin.Context) {
	eventID := c.Param("eventId")
	if !h.authorizeEvent(c, eventID) {
		return
	}
	p, err := h.participations.Get(c.Request.Context(), c.Param("admissionNumber"), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, p, nil)
}

// UpdateStatus godoc
// @Summary Override a participation status
// @Description SELECTED and REJECTED participations are final.
// @Tags Participations
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param admissionNumber path string true "Admission number"
// @Param payload body models.UpdateParticipationStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /participations/{eventId}/{admissionNumber}/status [patch]
func (h *ParticipationHandler) UpdateStatus(c *gin.Context) {
	eventID := c.Param("eventId")
	var req models.UpdateParticipationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.authorizeEvent(c, eventID) {
		return
	}
	p, err := h.participations.UpdateStatus(c.Request.Context(), c.Param("admissionNumber"), eventID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, p, nil)
}

func (h *ParticipationHandler) authorizeEvent(c *gin.Context, eventID string) bool {
	return authorizeEvent(c, h.events, eventID)
}

// authorizeEvent stops company callers acting on events of other companies.
func authorizeEvent(c *gin.Context, events eventAuthorizer, eventID string) bool {
	actor, ok := requireActor(c)
	if !ok {
		return false
	}
	if events == nil {
		return true
	}
	if err := events.Authorize(c.Request.Context(), eventID, actor); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}
