package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) (int64, error)
}

// CreateEventRequest holds the payload for creating events. EventID is optional.
type CreateEventRequest struct {
	EventID             string             `json:"eventId" validate:"omitempty,max=64"`
	EventName           string             `json:"eventName" validate:"required,max=255"`
	OrganizingCompany   string             `json:"organizingCompany" validate:"required,max=255"`
	CompanyID           *string            `json:"companyId"`
	JobRole             *string            `json:"jobRole" validate:"omitempty,max=255"`
	RegistrationStart   time.Time          `json:"registrationStart" validate:"required"`
	RegistrationEnd     time.Time          `json:"registrationEnd" validate:"required"`
	EventMode           models.EventMode   `json:"eventMode" validate:"omitempty,oneof=ONLINE OFFLINE HYBRID"`
	ExpectedCGPA        *float64           `json:"expectedCgpa" validate:"omitempty,min=0,max=10"`
	ExpectedPackage     *float64           `json:"expectedPackage" validate:"omitempty,min=0"`
	Description         string             `json:"eventDescription" validate:"max=5000"`
	EligibleDepartments []string           `json:"eligibleDepartments"`
	Status              models.EventStatus `json:"status" validate:"omitempty,oneof=UPCOMING ONGOING COMPLETED CANCELLED"`
}

// UpdateEventRequest holds a partial event update; nil fields are left unchanged.
type UpdateEventRequest struct {
	EventName           *string             `json:"eventName" validate:"omitempty,max=255"`
	OrganizingCompany   *string             `json:"organizingCompany" validate:"omitempty,max=255"`
	JobRole             *string             `json:"jobRole" validate:"omitempty,max=255"`
	RegistrationStart   *time.Time          `json:"registrationStart"`
	RegistrationEnd     *time.Time          `json:"registrationEnd"`
	EventMode           *models.EventMode   `json:"eventMode" validate:"omitempty,oneof=ONLINE OFFLINE HYBRID"`
	ExpectedCGPA        *float64            `json:"expectedCgpa" validate:"omitempty,min=0,max=10"`
	ExpectedPackage     *float64            `json:"expectedPackage" validate:"omitempty,min=0"`
	Description         *string             `json:"eventDescription" validate:"omitempty,max=5000"`
	EligibleDepartments []string            `json:"eligibleDepartments"`
	Status              *models.EventStatus `json:"status" validate:"omitempty,oneof=UPCOMING ONGOING COMPLETED CANCELLED"`
}

// EventService manages the event directory.
type EventService struct {
	repo      eventRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs the event service.
func NewEventService(repo eventRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns events and pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	if filter.Timeline != "" {
		switch filter.Timeline {
		case models.TimelineUpcoming, models.TimelineOngoing, models.TimelinePast:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "timeline must be upcoming, ongoing or past")
		}
	}
	if filter.Now.IsZero() {
		filter.Now = s.now().UTC()
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "event not found", "failed to load event")
	}
	return event, nil
}

// Create stores a new event, generating its id when none is supplied.
// Company accounts always create events for their own company.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, actor Actor) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.RegistrationEnd.After(req.RegistrationStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registrationEnd must be after registrationStart")
	}

	event := &models.Event{
		ID:                  strings.TrimSpace(req.EventID),
		Name:                strings.TrimSpace(req.EventName),
		OrganizingCompany:   strings.TrimSpace(req.OrganizingCompany),
		CompanyID:           req.CompanyID,
		JobRole:             req.JobRole,
		RegistrationStart:   req.RegistrationStart.UTC(),
		RegistrationEnd:     req.RegistrationEnd.UTC(),
		Mode:                req.EventMode,
		ExpectedCGPA:        req.ExpectedCGPA,
		ExpectedPackage:     req.ExpectedPackage,
		Description:         req.Description,
		EligibleDepartments: models.StringList(req.EligibleDepartments),
		Status:              req.Status,
	}
	if actor.Role == models.RoleCompany {
		ref := actor.ReferenceID
		event.CompanyID = &ref
	}
	if event.Mode == "" {
		event.Mode = models.EventModeOnline
	}
	if event.Status == "" {
		event.Status = models.EventStatusUpcoming
	}

	if event.ID == "" {
		event.ID = GenerateEventID(event.OrganizingCompany, s.now())
	}
	exists, err := s.repo.ExistsByID(ctx, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate event id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event id already exists")
	}
	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "event id already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("company", event.OrganizingCompany))
	return event, nil
}

// Update applies a partial update. Company accounts may only edit their own events.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest, actor Actor) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(event, actor); err != nil {
		return nil, err
	}

	if req.EventName != nil {
		event.Name = strings.TrimSpace(*req.EventName)
	}
	if req.OrganizingCompany != nil {
		event.OrganizingCompany = strings.TrimSpace(*req.OrganizingCompany)
	}
	if req.JobRole != nil {
		event.JobRole = req.JobRole
	}
	if req.RegistrationStart != nil {
		event.RegistrationStart = req.RegistrationStart.UTC()
	}
	if req.RegistrationEnd != nil {
		event.RegistrationEnd = req.RegistrationEnd.UTC()
	}
	if req.EventMode != nil {
		event.Mode = *req.EventMode
	}
	if req.ExpectedCGPA != nil {
		event.ExpectedCGPA = req.ExpectedCGPA
	}
	if req.ExpectedPackage != nil {
		event.ExpectedPackage = req.ExpectedPackage
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.EligibleDepartments != nil {
		event.EligibleDepartments = models.StringList(req.EligibleDepartments)
	}
	if req.Status != nil {
		event.Status = *req.Status
	}
	if !event.RegistrationEnd.After(event.RegistrationStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registrationEnd must be after registrationStart")
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, notFoundOrInternal(err, "event not found", "failed to update event")
	}
	// student reports join live event details
	s.cache.InvalidateEvent(ctx, event.ID)
	s.cache.InvalidateAllStudentReports(ctx)
	return event, nil
}

// Delete removes the event together with all of its participations.
func (s *EventService) Delete(ctx context.Context, id string, actor Actor) error {
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(event, actor); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.cache.InvalidateEvent(ctx, id)
	if removed > 0 {
		s.cache.InvalidateAllStudentReports(ctx)
	}
	s.logger.Info("event deleted", zap.String("event_id", id), zap.Int64("participations_removed", removed))
	return nil
}

// Authorize loads the event and checks that a company actor owns it.
func (s *EventService) Authorize(ctx context.Context, eventID string, actor Actor) error {
	if actor.Role != models.RoleCompany {
		return nil
	}
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	return s.authorize(event, actor)
}

func (s *EventService) authorize(event *models.Event, actor Actor) error {
	if actor.Role != models.RoleCompany {
		return nil
	}
	if event.CompanyID == nil || !actor.Owns(*event.CompanyID) {
		return appErrors.Clone(appErrors.ErrForbidden, "event belongs to another company")
	}
	return nil
}

// GenerateEventID builds "<COMPANY>-ddMMyyHHmmss" from the organizing company with
// whitespace removed, upper-cased and capped at ten characters.
func GenerateEventID(company string, at time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(company) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	prefix := []rune(b.String())
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	if len(prefix) == 0 {
		prefix = []rune("EVENT")
	}
	return fmt.Sprintf("%s-%s", string(prefix), at.Format("020106150405"))
}
