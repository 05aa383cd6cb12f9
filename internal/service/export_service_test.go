package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/pkg/export"
	"github.com/placement-sarthi/placement-api/pkg/storage"
)

type exportSourceStub struct {
	err   error
	calls []string
}

func (s *exportSourceStub) ExportEventRoster(_ context.Context, eventID string, format export.Format) (*ExportFile, error) {
	s.calls = append(s.calls, "roster:"+eventID)
	if s.err != nil {
		return nil, s.err
	}
	return &ExportFile{Name: eventID + "-registrations." + string(format), ContentType: format.ContentType(), Data: []byte("Admission Number,Status\nA1,REGISTERED\n")}, nil
}

func (s *exportSourceStub) ExportStudentReport(_ context.Context, admissionNumber string, format export.Format) (*ExportFile, error) {
	s.calls = append(s.calls, "student:"+admissionNumber)
	if s.err != nil {
		return nil, s.err
	}
	return &ExportFile{Name: admissionNumber + "-report." + string(format), ContentType: format.ContentType(), Data: []byte("%PDF-1.3")}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *exportSourceStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	source := &exportSourceStub{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, zap.NewNop())
	return svc, store, source
}

func TestExportServiceGenerateRoster(t *testing.T) {
	svc, store, source := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeEventRoster,
		Params: models.ExportJobParams{EventID: "INFOSYS-100326120000", Format: models.ExportFormatCSV},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, []string{"roster:INFOSYS-100326120000"}, source.calls)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/"))
	require.True(t, strings.HasSuffix(result.URL, result.Token))
	require.Equal(t, models.ExportFormatCSV, result.Format)
	require.True(t, strings.HasSuffix(result.RelativePath, "INFOSYS-100326120000-registrations.csv"))

	info, err := os.Stat(filepath.Join(store.Dir(), result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceGenerateStudentReportPDF(t *testing.T) {
	svc, _, source := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeStudentReport,
		Params: models.ExportJobParams{AdmissionNumber: "A1", Format: models.ExportFormatPDF},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, []string{"student:A1"}, source.calls)
	require.Equal(t, models.ExportFormatPDF, result.Format)

	f, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, svc.Delete(result.RelativePath))
	_, err = svc.Open(result.RelativePath)
	require.Error(t, err)
}

func TestExportServiceGenerateErrors(t *testing.T) {
	svc, _, source := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), nil)
	require.Error(t, err)

	_, err = svc.Generate(context.Background(), &models.ExportJob{ID: "x", Type: "unknown", Params: models.ExportJobParams{Format: models.ExportFormatCSV}})
	require.ErrorContains(t, err, "unsupported export type")

	_, err = svc.Generate(context.Background(), &models.ExportJob{ID: "x", Type: models.ExportTypeEventRoster, Params: models.ExportJobParams{Format: "xlsx"}})
	require.Error(t, err)

	source.err = errors.New("roster unavailable")
	_, err = svc.Generate(context.Background(), &models.ExportJob{ID: "x", Type: models.ExportTypeEventRoster, Params: models.ExportJobParams{EventID: "E1", Format: models.ExportFormatCSV}})
	require.ErrorContains(t, err, "roster unavailable")
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "export", sanitizeFilename(""))
	require.Equal(t, "a-b_c.csv", sanitizeFilename("a/b c.csv"))
	long := strings.Repeat("x", 120) + ".pdf"
	got := sanitizeFilename(long)
	require.Len(t, got, 100)
	require.True(t, strings.HasSuffix(got, ".pdf"))
}
