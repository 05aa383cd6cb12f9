package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

type bulkParticipationStore interface {
	Find(ctx context.Context, studentID, eventID string) (*models.Participation, error)
	FindAllForEvent(ctx context.Context, eventID string) ([]models.Participation, error)
	Upsert(ctx context.Context, p *models.Participation) error
}

type cohortDirectory interface {
	FindByAdmissionNumbers(ctx context.Context, admissionNumbers []string) (map[string]models.Student, error)
}

// BulkTransitionService moves a cohort of an event to the next pipeline stage
// and rejects the eligible participants left behind.
//
// Each record is written on its own and finalised records are never
// overwritten, even when they were finalised after the snapshot was read. A
// run reads one snapshot of the event's
// participations, so registrations arriving mid-run are picked up by the next
// run; rerunning the same request converges to the same statuses.
type BulkTransitionService struct {
	store     bulkParticipationStore
	students  cohortDirectory
	events    eventReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulkTransitionService constructs a BulkTransitionService.
func NewBulkTransitionService(store bulkParticipationStore, students cohortDirectory, events eventReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BulkTransitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkTransitionService{
		store:     store,
		students:  students,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// SendAssessmentLinks advances the cohort to the online assessment.
func (s *BulkTransitionService) SendAssessmentLinks(ctx context.Context, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error) {
	return s.Transition(ctx, models.StageOA, req)
}

// ScheduleInterviews advances the cohort to the interview stage.
func (s *BulkTransitionService) ScheduleInterviews(ctx context.Context, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error) {
	return s.Transition(ctx, models.StageInterview, req)
}

// FinalizeSelection selects the cohort and rejects everyone else still pending.
func (s *BulkTransitionService) FinalizeSelection(ctx context.Context, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error) {
	return s.Transition(ctx, models.StageFinalSelection, req)
}

// Transition applies one bulk stage transition to an event.
func (s *BulkTransitionService) Transition(ctx context.Context, stage models.Stage, req models.BulkTransitionRequest) (*models.BulkTransitionResult, error) {
	metadata, err := s.validateRequest(stage, req)
	if err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, notFoundOrInternal(err, "event not found", "failed to load event")
	}

	existing, err := s.store.FindAllForEvent(ctx, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participations")
	}

	cohort := uniqueCohort(req.StudentAdmissionNumbers)
	inCohort := make(map[string]bool, len(cohort))
	for _, id := range cohort {
		inCohort[id] = true
	}

	advance := advanceStatus(stage)
	description := stageDescription(metadata, req.Description)
	result := &models.BulkTransitionResult{NotFoundStudents: []string{}}
	touched := make([]string, 0, len(existing)+len(cohort))
	present := make(map[string]bool, len(existing))

	for i := range existing {
		p := &existing[i]
		present[p.StudentAdmissionNumber] = true
		switch {
		case inCohort[p.StudentAdmissionNumber]:
			if p.Status.Terminal() {
				continue
			}
			applyAdvance(p, advance, metadata, description)
			if err := s.store.Upsert(ctx, p); err != nil {
				if errors.Is(err, repository.ErrParticipationFinalised) {
					continue
				}
				return nil, s.persistFailure(err, stage, event.ID, p.StudentAdmissionNumber)
			}
			result.AdvancedCount++
		case rejectable(stage, p.Status):
			p.Status = models.ParticipationRejected
			if err := s.store.Upsert(ctx, p); err != nil {
				if errors.Is(err, repository.ErrParticipationFinalised) {
					continue
				}
				return nil, s.persistFailure(err, stage, event.ID, p.StudentAdmissionNumber)
			}
			result.RejectedCount++
		default:
			continue
		}
		touched = append(touched, p.StudentAdmissionNumber)
	}

	var entrants []string
	for _, id := range cohort {
		if !present[id] {
			entrants = append(entrants, id)
		}
	}
	if len(entrants) > 0 {
		directory, err := s.students.FindByAdmissionNumbers(ctx, entrants)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
		for _, id := range entrants {
			student, ok := directory[id]
			if !ok {
				result.NotFoundStudents = append(result.NotFoundStudents, id)
				continue
			}
			inserted, advanced, err := s.insertEntrant(ctx, student, *event, advance, metadata, description)
			if errors.Is(err, repository.ErrEventGone) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
			}
			if err != nil {
				return nil, s.persistFailure(err, stage, event.ID, id)
			}
			if inserted {
				result.NewlyInsertedCount++
			}
			if advanced {
				result.AdvancedCount++
			}
			if inserted || advanced {
				touched = append(touched, id)
			}
		}
	}

	processed := result.AdvancedCount + result.RejectedCount + result.NewlyInsertedCount
	result.Message = fmt.Sprintf("Processed %d students: %d advanced, %d rejected, %d newly added.",
		processed, result.AdvancedCount, result.RejectedCount, result.NewlyInsertedCount)

	s.cache.InvalidateEvent(ctx, event.ID, touched...)
	s.metrics.RecordBulkTransition(stage, *result)
	s.logger.Info("bulk transition applied",
		zap.String("stage", string(stage)),
		zap.String("event_id", event.ID),
		zap.Int("cohort", len(cohort)),
		zap.Int("advanced", result.AdvancedCount),
		zap.Int("rejected", result.RejectedCount),
		zap.Int("inserted", result.NewlyInsertedCount),
		zap.Int("not_found", len(result.NotFoundStudents)),
	)
	return result, nil
}

// insertEntrant creates a participation for a cohort member who never
// registered. When a concurrent registration wins the insert, the existing
// record is advanced instead.
func (s *BulkTransitionService) insertEntrant(ctx context.Context, student models.Student, event models.Event, advance models.ParticipationStatus, metadata models.StageMetadata, description string) (inserted, advanced bool, err error) {
	p := &models.Participation{}
	p.CopyStudent(student)
	p.CopyEvent(event)
	applyAdvance(p, advance, metadata, description)

	err = s.store.Upsert(ctx, p)
	if err == nil {
		return true, false, nil
	}
	if !errors.Is(err, repository.ErrDuplicateParticipation) {
		return false, false, err
	}

	current, err := s.store.Find(ctx, student.AdmissionNumber, event.ID)
	if err != nil {
		return false, false, err
	}
	if current.Status.Terminal() {
		return false, false, nil
	}
	applyAdvance(current, advance, metadata, description)
	if err := s.store.Upsert(ctx, current); err != nil {
		if errors.Is(err, repository.ErrParticipationFinalised) {
			return false, false, nil
		}
		return false, false, err
	}
	return false, true, nil
}

func (s *BulkTransitionService) validateRequest(stage models.Stage, req models.BulkTransitionRequest) (models.StageMetadata, error) {
	if len(uniqueCohort(req.StudentAdmissionNumbers)) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "No students selected")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk transition payload")
	}
	window := models.TimeWindow{Start: req.WindowStart, End: req.WindowEnd}
	if window.Start != nil && window.End != nil && window.End.Before(*window.Start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window end must not be before window start")
	}

	link := strings.TrimSpace(req.StageLink)
	switch stage {
	case models.StageOA:
		if link == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "OA link is required")
		}
		return models.OnlineAssessment{Link: link, Window: window}, nil
	case models.StageInterview:
		if link == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Interview link/venue is required")
		}
		return models.Interview{LinkOrVenue: link, Online: models.IsOnlineVenue(link), Window: window}, nil
	case models.StageFinalSelection:
		return models.FinalSelection{}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported stage "+string(stage))
	}
}

func (s *BulkTransitionService) persistFailure(err error, stage models.Stage, eventID, admissionNumber string) error {
	s.logger.Error("bulk transition write failed",
		zap.String("stage", string(stage)),
		zap.String("event_id", eventID),
		zap.String("admission_number", admissionNumber),
		zap.Error(err),
	)
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update participation")
}

func advanceStatus(stage models.Stage) models.ParticipationStatus {
	if stage == models.StageFinalSelection {
		return models.ParticipationSelected
	}
	return models.ParticipationAttempted
}

// rejectable reports whether a participant left out of the cohort is rejected
// at the given stage.
func rejectable(stage models.Stage, status models.ParticipationStatus) bool {
	switch stage {
	case models.StageOA:
		return status == models.ParticipationRegistered
	case models.StageInterview:
		return status == models.ParticipationRegistered || status == models.ParticipationAttempted
	case models.StageFinalSelection:
		return !status.Terminal()
	}
	return false
}

func applyAdvance(p *models.Participation, status models.ParticipationStatus, metadata models.StageMetadata, description string) {
	p.Status = status
	p.Stage = metadata.Stage()
	p.StageDetails = models.StageDetails{Metadata: metadata}
	p.Description = description
}

// stageDescription renders the metadata summary followed by the operator note.
func stageDescription(metadata models.StageMetadata, note string) string {
	summary := metadata.Summary()
	if note = strings.TrimSpace(note); note != "" {
		return summary + " | " + note
	}
	return summary
}

func uniqueCohort(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
