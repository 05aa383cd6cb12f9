package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/middleware"
	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, role models.UserRole, ref string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-" + ref, Role: role, ReferenceID: ref})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type fakeAuthorizer struct {
	err   error
	calls []string
}

func (f *fakeAuthorizer) Authorize(_ context.Context, eventID string, _ service.Actor) error {
	f.calls = append(f.calls, eventID)
	return f.err
}

type fakeReports struct {
	report      *models.StudentReport
	roster      *models.EventRoster
	hit         bool
	count       int
	file        *service.ExportFile
	err         error
	lastFormat  export.Format
	lastEventID string
}

func (f *fakeReports) StudentReport(context.Context, string) (*models.StudentReport, bool, error) {
	return f.report, f.hit, f.err
}

func (f *fakeReports) EventRoster(_ context.Context, eventID string) (*models.EventRoster, bool, error) {
	f.lastEventID = eventID
	return f.roster, f.hit, f.err
}

func (f *fakeReports) RegistrationCount(context.Context, string) (int, error) {
	return f.count, f.err
}

func (f *fakeReports) ExportEventRoster(_ context.Context, eventID string, format export.Format) (*service.ExportFile, error) {
	f.lastEventID = eventID
	f.lastFormat = format
	return f.file, f.err
}

func (f *fakeReports) ExportStudentReport(_ context.Context, _ string, format export.Format) (*service.ExportFile, error) {
	f.lastFormat = format
	return f.file, f.err
}

func TestReportHandlerStudentReportCarriesCacheMeta(t *testing.T) {
	reports := &fakeReports{
		report: &models.StudentReport{Summary: models.StudentReportSummary{TotalRegistered: 2, TotalPending: 1}},
		hit:    true,
	}
	h := NewReportHandler(reports, &fakeAuthorizer{})

	c, w := newGinContext(http.MethodGet, "/reports/students/22CSE001", nil)
	c.Params = gin.Params{{Key: "admissionNumber", Value: "22CSE001"}}
	withClaims(c, models.RoleStudent, "22CSE001")
	h.StudentReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cacheHit"])
	var report models.StudentReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 2, report.Summary.TotalRegistered)
}

func TestReportHandlerEventRosterChecksOwnership(t *testing.T) {
	reports := &fakeReports{roster: &models.EventRoster{EventID: "EV1"}}
	auth := &fakeAuthorizer{err: appErrors.Clone(appErrors.ErrForbidden, "event belongs to another company")}
	h := NewReportHandler(reports, auth)

	c, w := newGinContext(http.MethodGet, "/events/EV1/registrations", nil)
	c.Params = gin.Params{{Key: "eventId", Value: "EV1"}}
	withClaims(c, models.RoleCompany, "c2")
	h.EventRoster(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"EV1"}, auth.calls)
	assert.Empty(t, reports.lastEventID)
}

func TestReportHandlerRegistrationCount(t *testing.T) {
	h := NewReportHandler(&fakeReports{count: 7}, &fakeAuthorizer{})

	c, w := newGinContext(http.MethodGet, "/events/EV1/registrations/count", nil)
	c.Params = gin.Params{{Key: "eventId", Value: "EV1"}}
	h.RegistrationCount(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"eventId":"EV1","count":7}`, string(decode(t, w).Data))
}

func TestReportHandlerExportEventRoster(t *testing.T) {
	reports := &fakeReports{file: &service.ExportFile{Name: "EV1-registrations.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}}
	h := NewReportHandler(reports, &fakeAuthorizer{})

	c, w := newGinContext(http.MethodGet, "/events/EV1/registrations/export?format=PDF", nil)
	c.Params = gin.Params{{Key: "eventId", Value: "EV1"}}
	withClaims(c, models.RoleAdmin, "")
	h.ExportEventRoster(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatPDF, reports.lastFormat)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="EV1-registrations.pdf"`)
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestReportHandlerExportRejectsUnknownFormat(t *testing.T) {
	reports := &fakeReports{}
	h := NewReportHandler(reports, &fakeAuthorizer{})

	c, w := newGinContext(http.MethodGet, "/events/EV1/registrations/export?format=xlsx", nil)
	c.Params = gin.Params{{Key: "eventId", Value: "EV1"}}
	withClaims(c, models.RoleAdmin, "")
	h.ExportEventRoster(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "format must be csv or pdf", decode(t, w).Error.Message)
	assert.Empty(t, reports.lastEventID)
}
