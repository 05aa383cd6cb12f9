package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

// StudentHandler exposes the student directory.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, email or admission number"
// @Param department query string false "Filter by department"
// @Param batch query string false "Filter by batch"
// @Param course query string false "Filter by course"
// @Param minCgpa query number false "Minimum CGPA"
// @Param maxBacklogs query int false "Maximum backlog count"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: c.Query("department"),
		Batch:      c.Query("batch"),
		Course:     c.Query("course"),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	if filter.MinCGPA, err = queryFloat(c, "minCgpa"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.MaxBacklogs, err = queryInt(c, "maxBacklogs"); err != nil {
		response.Error(c, err)
		return
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Success 200 {object} response.Envelope
// @Router /students/{admissionNumber} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("admissionNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Description Adds the student and provisions a STUDENT login keyed by admission number.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{admissionNumber} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("admissionNumber"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Description Registrations are kept so event rosters still list the admission number.
// @Tags Students
// @Param admissionNumber path string true "Admission number"
// @Success 204 {string} string ""
// @Router /students/{admissionNumber} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("admissionNumber")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadResume godoc
// @Summary Upload resume
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Param file formData file true "PDF or Word document"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /students/{admissionNumber}/resume [post]
func (h *StudentHandler) UploadResume(c *gin.Context) {
	h.upload(c, h.students.UploadResume)
}

// UploadPhoto godoc
// @Summary Upload profile photo
// @Description The image is resized and stored as JPEG.
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param admissionNumber path string true "Admission number"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Router /students/{admissionNumber}/photo [post]
func (h *StudentHandler) UploadPhoto(c *gin.Context) {
	h.upload(c, h.students.UploadPhoto)
}

func (h *StudentHandler) upload(c *gin.Context, store func(context.Context, string, service.Upload) (*models.Student, error)) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	student, err := store(c.Request.Context(), c.Param("admissionNumber"), service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Import godoc
// @Summary Bulk import students
// @Description Creates one student per CSV or XLSX row. Existing admission numbers are skipped and invalid rows are reported per row.
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	var result *service.StudentImportResult
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		result, err = h.students.ImportXLSX(c.Request.Context(), file)
	case ".csv", "":
		result, err = h.students.ImportCSV(c.Request.Context(), file)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "only .csv and .xlsx files are supported")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportTemplate godoc
// @Summary Download the bulk import template
// @Tags Students
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Router /students/import/template [get]
func (h *StudentHandler) ImportTemplate(c *gin.Context) {
	file, err := h.students.ImportTemplate(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
