package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tokenSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type exportSource interface {
	ExportEventRoster(ctx context.Context, eventID string, format export.Format) (*ExportFile, error)
	ExportStudentReport(ctx context.Context, admissionNumber string, format export.Format) (*ExportFile, error)
}

// ExportConfig configures export generation.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes a stored export artifact.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders export jobs, stores the files and signs download links.
type ExportService struct {
	source  exportSource
	storage fileStorage
	signer  tokenSigner
	cfg     ExportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService wires dependencies for export generation.
func NewExportService(source exportSource, storage fileStorage, signer tokenSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		source:  source,
		storage: storage,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the job's dataset and stores the result.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format, err := export.ParseFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}

	var file *ExportFile
	switch job.Type {
	case models.ExportTypeEventRoster:
		file, err = s.source.ExportEventRoster(ctx, job.Params.EventID, format)
	case models.ExportTypeStudentReport:
		file, err = s.source.ExportStudentReport(ctx, job.Params.AdmissionNumber, format)
	default:
		err = fmt.Errorf("unsupported export type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, file.Name), file.Data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       models.ExportFormat(format),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, falling back to ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if len(removed) > 0 {
		s.logger.Debug("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, err
}

// buildFilename prefixes the rendered name with a timestamp so reruns never collide.
func (s *ExportService) buildFilename(job *models.ExportJob, name string) string {
	stamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s", string(job.Type), stamp, sanitizeFilename(name))
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[len(result)-100:]
	}
	return result
}
