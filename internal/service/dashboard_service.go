package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

const dashboardKeyPrefix = "dash:"

type dashboardRepository interface {
	Totals(ctx context.Context) (models.DashboardTotals, error)
	Timeline(ctx context.Context, now time.Time) (models.TimelineCounts, error)
	StatusBreakdown(ctx context.Context, companyID string) ([]models.StatusCount, error)
	DepartmentPlacements(ctx context.Context) ([]models.DepartmentPlacement, error)
	EventActivity(ctx context.Context, filter models.EventActivityFilter) ([]models.EventActivity, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL          time.Duration
	ActiveEventsLimit int
}

// DashboardService composes the admin and company overview payloads.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.ActiveEventsLimit <= 0 {
		cfg.ActiveEventsLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Admin returns the placement cell overview and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	key := dashboardKeyPrefix + "admin"
	var cached models.AdminDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	now := s.now().UTC()
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, false, dashboardError(err)
	}
	timeline, err := s.repo.Timeline(ctx, now)
	if err != nil {
		return nil, false, dashboardError(err)
	}
	breakdown, err := s.repo.StatusBreakdown(ctx, "")
	if err != nil {
		return nil, false, dashboardError(err)
	}
	departments, err := s.repo.DepartmentPlacements(ctx)
	if err != nil {
		return nil, false, dashboardError(err)
	}
	active, err := s.repo.EventActivity(ctx, models.EventActivityFilter{EndingAfter: &now, Limit: s.cfg.ActiveEventsLimit})
	if err != nil {
		return nil, false, dashboardError(err)
	}

	for i := range departments {
		departments[i].Rate = placementRate(departments[i].Placed, departments[i].Students)
	}
	summary := &models.AdminDashboard{
		Totals:         totals,
		Timeline:       timeline,
		Participations: fillStatuses(breakdown),
		Departments:    departments,
		ActiveEvents:   withTimeline(active, now),
		GeneratedAt:    now,
	}
	s.persist(ctx, key, summary)
	return summary, false, nil
}

// Company returns the overview of one company's drives. Company actors may
// only read their own.
func (s *DashboardService) Company(ctx context.Context, companyID string, actor Actor) (*models.CompanyDashboard, bool, error) {
	if companyID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "companyId is required")
	}
	if actor.Role == models.RoleCompany && !actor.Owns(companyID) {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "cannot view another company's dashboard")
	}
	key := fmt.Sprintf("%scompany:%s", dashboardKeyPrefix, companyID)
	var cached models.CompanyDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	now := s.now().UTC()
	breakdown, err := s.repo.StatusBreakdown(ctx, companyID)
	if err != nil {
		return nil, false, dashboardError(err)
	}
	events, err := s.repo.EventActivity(ctx, models.EventActivityFilter{CompanyID: companyID})
	if err != nil {
		return nil, false, dashboardError(err)
	}
	summary := &models.CompanyDashboard{
		CompanyID:      companyID,
		Participations: fillStatuses(breakdown),
		Events:         withTimeline(events, now),
		GeneratedAt:    now,
	}
	s.persist(ctx, key, summary)
	return summary, false, nil
}

func (s *DashboardService) persist(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func dashboardError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
}

// fillStatuses returns one entry per participation status in lifecycle order,
// including zero counts.
func fillStatuses(counts []models.StatusCount) []models.StatusCount {
	byStatus := make(map[models.ParticipationStatus]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] += c.Count
	}
	statuses := []models.ParticipationStatus{
		models.ParticipationRegistered,
		models.ParticipationAttempted,
		models.ParticipationCompleted,
		models.ParticipationAbsent,
		models.ParticipationSelected,
		models.ParticipationRejected,
	}
	out := make([]models.StatusCount, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, models.StatusCount{Status: status, Count: byStatus[status]})
	}
	return out
}

func withTimeline(events []models.EventActivity, now time.Time) []models.EventActivity {
	for i := range events {
		events[i].Timeline = models.Event{
			RegistrationStart: events[i].RegistrationStart,
			RegistrationEnd:   events[i].RegistrationEnd,
		}.Timeline(now)
	}
	if events == nil {
		return []models.EventActivity{}
	}
	return events
}

func placementRate(placed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(placed)/float64(total)*10000) / 100
}
