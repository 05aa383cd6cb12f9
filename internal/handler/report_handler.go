package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/middleware"
	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/export"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

type reportService interface {
	StudentReport(ctx context.Context, admissionNumber string) (*models.StudentReport, bool, error)
	EventRoster(ctx context.Context, eventID string) (*models.EventRoster, bool, error)
	RegistrationCount(ctx context.Context, eventID string) (int, error)
	ExportEventRoster(ctx context.Context, eventID string, format export.Format) (*service.ExportFile, error)
	ExportStudentReport(ctx context.Context, admissionNumber string, format export.Format) (*service.ExportFile, error)
}

// ReportHandler exposes student reports and event rosters.
type ReportHandler struct {
	reports reportService
	events  eventAuthorizer
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, events eventAuthorizer) *ReportHandler {
	return &ReportHandler{reports: reports, events: events}
}

// StudentReport godoc
// @Summary Student placement report
// @Description Summary counts and per-event history. Events deleted since registration are marked eventRemoved.
// @Tags Reports
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/students/{admissionNumber} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	report, hit, err := h.reports.StudentReport(c.Request.Context(), c.Param("admissionNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// ExportStudentReport godoc
// @Summary Download a student report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param admissionNumber path string true "Admission number"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /reports/students/{admissionNumber}/export [get]
func (h *ReportHandler) ExportStudentReport(c *gin.Context) {
	format, ok := parseFormat(c)
	if !ok {
		return
	}
	file, err := h.reports.ExportStudentReport(c.Request.Context(), c.Param("admissionNumber"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// EventRoster godoc
// @Summary Event registrations
// @Description Registrations joined with current student details. Students removed from the directory keep their admission number.
// @Tags Reports
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/registrations [get]
func (h *ReportHandler) EventRoster(c *gin.Context) {
	eventID := c.Param("eventId")
	if !authorizeEvent(c, h.events, eventID) {
		return
	}
	roster, hit, err := h.reports.EventRoster(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, roster, nil, middleware.ExtractMeta(c))
}

// RegistrationCount godoc
// @Summary Number of registrations of an event
// @Tags Reports
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/registrations/count [get]
func (h *ReportHandler) RegistrationCount(c *gin.Context) {
	eventID := c.Param("eventId")
	total, err := h.reports.RegistrationCount(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"eventId": eventID, "count": total}, nil)
}

// ExportEventRoster godoc
// @Summary Download event registrations
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param eventId path string true "Event ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /events/{eventId}/registrations/export [get]
func (h *ReportHandler) ExportEventRoster(c *gin.Context) {
	eventID := c.Param("eventId")
	format, ok := parseFormat(c)
	if !ok {
		return
	}
	if !authorizeEvent(c, h.events, eventID) {
		return
	}
	file, err := h.reports.ExportEventRoster(c.Request.Context(), eventID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func parseFormat(c *gin.Context) (export.Format, bool) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return "", false
	}
	return format, true
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
