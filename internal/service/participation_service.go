package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

type participationStore interface {
	Exists(ctx context.Context, studentID, eventID string) (bool, error)
	Find(ctx context.Context, studentID, eventID string) (*models.Participation, error)
	FindAllForEvent(ctx context.Context, eventID string) ([]models.Participation, error)
	FindAllForStudent(ctx context.Context, studentID string) ([]models.Participation, error)
	Upsert(ctx context.Context, p *models.Participation) error
	UpdateStatus(ctx context.Context, id string, status models.ParticipationStatus) (bool, error)
}

type studentReader interface {
	FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*models.Student, error)
}

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// ParticipationOption customises a ParticipationService.
type ParticipationOption func(*ParticipationService)

// WithClock overrides the time source used for registration window checks.
func WithClock(now func() time.Time) ParticipationOption {
	return func(s *ParticipationService) {
		if now != nil {
			s.now = now
		}
	}
}

// ParticipationService registers students into events and manages single
// participation records.
type ParticipationService struct {
	store     participationStore
	students  studentReader
	events    eventReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewParticipationService constructs a ParticipationService.
func NewParticipationService(store participationStore, students studentReader, events eventReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger, opts ...ParticipationOption) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ParticipationService{
		store:     store,
		students:  students,
		events:    events,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a REGISTERED participation for the student in the event.
func (s *ParticipationService) Register(ctx context.Context, req models.RegisterParticipationRequest) (*models.Participation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	student, err := s.students.FindByAdmissionNumber(ctx, req.StudentAdmissionNumber)
	if err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, notFoundOrInternal(err, "event not found", "failed to load event")
	}

	exists, err := s.store.Exists(ctx, student.AdmissionNumber, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered for event")
	}

	now := s.now()
	if !event.RegistrationOpen(now) {
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "registration closed")
	}

	p := &models.Participation{
		Status:      models.ParticipationRegistered,
		Stage:       models.StageRegistration,
		Description: req.Description,
		CreatedAt:   now,
	}
	p.CopyStudent(*student)
	p.CopyEvent(*event)

	if err := s.store.Upsert(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered for event")
		}
		if errors.Is(err, repository.ErrEventGone) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register participation")
	}

	s.cache.InvalidateEvent(ctx, event.ID, student.AdmissionNumber)
	s.logger.Info("participation registered", zap.String("event_id", event.ID), zap.String("admission_number", student.AdmissionNumber))
	return p, nil
}

// Get returns the participation of a student in an event.
func (s *ParticipationService) Get(ctx context.Context, studentID, eventID string) (*models.Participation, error) {
	p, err := s.store.Find(ctx, studentID, eventID)
	if err != nil {
		return nil, notFoundOrInternal(err, "participation not found", "failed to load participation")
	}
	return p, nil
}

// ListForStudent returns every participation of a student, newest first.
func (s *ParticipationService) ListForStudent(ctx context.Context, studentID string) ([]models.Participation, error) {
	items, err := s.store.FindAllForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	return nonNil(items), nil
}

// ListForEvent returns every participation of an existing event.
func (s *ParticipationService) ListForEvent(ctx context.Context, eventID string) ([]models.Participation, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, notFoundOrInternal(err, "event not found", "failed to load event")
	}
	items, err := s.store.FindAllForEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participations")
	}
	return nonNil(items), nil
}

// UpdateStatus manually sets the status of a participation. SELECTED and
// REJECTED records cannot be changed.
func (s *ParticipationService) UpdateStatus(ctx context.Context, studentID, eventID string, req models.UpdateParticipationStatusRequest) (*models.Participation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid participation status")
	}

	p, err := s.store.Find(ctx, studentID, eventID)
	if err != nil {
		return nil, notFoundOrInternal(err, "participation not found", "failed to load participation")
	}
	if p.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalStatus, "participation is already "+string(p.Status))
	}

	if req.Description != nil {
		p.Status = req.Status
		p.Description = *req.Description
		if err := s.store.Upsert(ctx, p); err != nil {
			if errors.Is(err, repository.ErrParticipationFinalised) {
				return nil, appErrors.Clone(appErrors.ErrTerminalStatus, "participation was finalised concurrently")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participation")
		}
	} else {
		updated, err := s.store.UpdateStatus(ctx, p.ID, req.Status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participation")
		}
		if !updated {
			return nil, appErrors.Clone(appErrors.ErrTerminalStatus, "participation was finalised concurrently")
		}
		p.Status = req.Status
		p.UpdatedAt = s.now()
	}

	s.cache.InvalidateEvent(ctx, eventID, studentID)
	return p, nil
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
