package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

// Cache key layout for report projections.
const (
	studentReportKeyPrefix = "reports:student:"
	eventRosterKeyPrefix   = "reports:event:"
)

// StudentReportKey is the cache key of a student's report.
func StudentReportKey(admissionNumber string) string {
	return studentReportKeyPrefix + admissionNumber
}

// EventRosterKey is the cache key of an event roster.
func EventRosterKey(eventID string) string {
	return fmt.Sprintf("%s%s:roster", eventRosterKeyPrefix, eventID)
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps report caching with metrics. Cache failures are logged
// and never fail the caller's read path.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateEvent drops the roster of an event and the reports of the given students.
func (s *CacheService) InvalidateEvent(ctx context.Context, eventID string, admissionNumbers ...string) {
	if !s.Enabled() {
		return
	}
	keys := make([]string, 0, len(admissionNumbers)+1)
	keys = append(keys, EventRosterKey(eventID))
	for _, id := range admissionNumbers {
		keys = append(keys, StudentReportKey(id))
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("event_id", eventID), zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// InvalidateStudent drops a student's cached report.
func (s *CacheService) InvalidateStudent(ctx context.Context, admissionNumber string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, StudentReportKey(admissionNumber)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("admission_number", admissionNumber), zap.Error(err))
	}
}

// InvalidateAllStudentReports drops every cached student report, used when an
// event is deleted and the affected students are unknown.
func (s *CacheService) InvalidateAllStudentReports(ctx context.Context) {
	_ = s.Invalidate(ctx, studentReportKeyPrefix+"*")
}

// InvalidateAllRosters drops every cached event roster. Rosters embed student
// profile fields, so a profile edit touches all of them.
func (s *CacheService) InvalidateAllRosters(ctx context.Context) {
	_ = s.Invalidate(ctx, eventRosterKeyPrefix+"*")
}
