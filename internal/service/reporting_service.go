package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

// RosterHeaders are the columns of an exported event roster.
var RosterHeaders = []string{
	"Admission Number", "First Name", "Last Name", "Department", "Batch", "Course", "CGPA", "10th %", "12th %",
	"Backlogs", "Email", "Phone", "University Roll No", "Enrollment No", "Status",
}

var studentReportHeaders = []string{"Event ID", "Event", "Company", "Job Role", "Stage", "Status", "Registered At"}

type reportStore interface {
	FindAllForStudentWithEvents(ctx context.Context, studentID string) ([]models.ParticipationWithEvent, error)
	ListRoster(ctx context.Context, eventID string) ([]models.RosterRecord, error)
	CountForEvent(ctx context.Context, eventID string) (int, error)
}

// ExportFile is a rendered export ready to be served or stored.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReportingService builds read-only projections over participations.
type ReportingService struct {
	store    reportStore
	students studentReader
	events   eventReader
	cache    *CacheService
	renderer *export.Renderer
	logger   *zap.Logger
}

// NewReportingService constructs a ReportingService.
func NewReportingService(store reportStore, students studentReader, events eventReader, cache *CacheService, renderer *export.Renderer, logger *zap.Logger) *ReportingService {
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{store: store, students: students, events: events, cache: cache, renderer: renderer, logger: logger}
}

// StudentReport returns the event history of a student. The boolean reports a cache hit.
func (s *ReportingService) StudentReport(ctx context.Context, admissionNumber string) (*models.StudentReport, bool, error) {
	key := StudentReportKey(admissionNumber)
	var cached models.StudentReport
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	student, err := s.students.FindByAdmissionNumber(ctx, admissionNumber)
	if err != nil {
		return nil, false, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	rows, err := s.store.FindAllForStudentWithEvents(ctx, admissionNumber)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participations")
	}

	report := &models.StudentReport{Student: *student, Events: make([]models.StudentReportEvent, 0, len(rows))}
	for _, row := range rows {
		report.Events = append(report.Events, reportEvent(row))
		countStatus(&report.Summary, row.Status)
	}
	report.Summary.TotalRegistered = len(rows)

	_ = s.cache.Set(ctx, key, report, 0)
	return report, false, nil
}

// EventRoster returns the registrations of an event joined with live student data.
func (s *ReportingService) EventRoster(ctx context.Context, eventID string) (*models.EventRoster, bool, error) {
	key := EventRosterKey(eventID)
	var cached models.EventRoster
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, false, notFoundOrInternal(err, "event not found", "failed to load event")
	}
	records, err := s.store.ListRoster(ctx, eventID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	roster := &models.EventRoster{
		EventID:           event.ID,
		EventName:         event.Name,
		OrganizingCompany: event.OrganizingCompany,
		Total:             len(records),
		Entries:           make([]models.RosterEntry, 0, len(records)),
	}
	for _, rec := range records {
		roster.Entries = append(roster.Entries, rosterEntry(rec))
	}

	_ = s.cache.Set(ctx, key, roster, 0)
	return roster, false, nil
}

// RegistrationCount returns the number of participations of an event.
func (s *ReportingService) RegistrationCount(ctx context.Context, eventID string) (int, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return 0, notFoundOrInternal(err, "event not found", "failed to load event")
	}
	total, err := s.store.CountForEvent(ctx, eventID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	return total, nil
}

// ExportEventRoster renders the roster of an event as CSV or PDF.
func (s *ReportingService) ExportEventRoster(ctx context.Context, eventID string, format export.Format) (*ExportFile, error) {
	roster, _, err := s.EventRoster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(format, RosterDataset(roster), roster.EventName+" registrations")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &ExportFile{
		Name:        fmt.Sprintf("%s-registrations.%s", roster.EventID, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// ExportStudentReport renders a student's report as CSV or PDF.
func (s *ReportingService) ExportStudentReport(ctx context.Context, admissionNumber string, format export.Format) (*ExportFile, error) {
	report, _, err := s.StudentReport(ctx, admissionNumber)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(format, StudentReportDataset(report), "Placement report: "+report.Student.FullName())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Name:        fmt.Sprintf("%s-report.%s", admissionNumber, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// RosterDataset projects a roster onto the export columns.
func RosterDataset(roster *models.EventRoster) export.Dataset {
	rows := make([]map[string]string, 0, len(roster.Entries))
	for _, e := range roster.Entries {
		rows = append(rows, map[string]string{
			"Admission Number":   e.AdmissionNumber,
			"First Name":         e.FirstName,
			"Last Name":          e.LastName,
			"Department":         e.Department,
			"Batch":              e.Batch,
			"Course":             e.Course,
			"CGPA":               formatDecimal(e.CGPA),
			"10th %":             formatDecimal(e.TenthPercentage),
			"12th %":             formatDecimal(e.TwelfthPercentage),
			"Backlogs":           strconv.Itoa(e.BacklogCount),
			"Email":              e.Email,
			"Phone":              e.Mobile,
			"University Roll No": e.UniversityRollNo,
			"Enrollment No":      e.EnrollmentNo,
			"Status":             string(e.Status),
		})
	}
	return export.Dataset{
		Headers: RosterHeaders,
		Rows:    rows,
		Summary: []string{
			"Event: " + roster.EventName + " (" + roster.EventID + ")",
			"Company: " + roster.OrganizingCompany,
			fmt.Sprintf("Total registrations: %d", roster.Total),
		},
	}
}

// StudentReportDataset projects a student report onto export rows.
func StudentReportDataset(report *models.StudentReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Events))
	for _, e := range report.Events {
		rows = append(rows, map[string]string{
			"Event ID":      e.EventID,
			"Event":         e.EventName,
			"Company":       e.OrganizingCompany,
			"Job Role":      e.JobRole,
			"Stage":         string(e.Stage),
			"Status":        string(e.Status),
			"Registered At": e.RegisteredAt.Format("2006-01-02"),
		})
	}
	sum := report.Summary
	return export.Dataset{
		Headers: studentReportHeaders,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("Student: %s (%s), %s %s", report.Student.FullName(), report.Student.AdmissionNumber, report.Student.Department, report.Student.Batch),
			fmt.Sprintf("Registered: %d  Selected: %d  Rejected: %d  Attempted: %d  Absent: %d  Completed: %d  Pending: %d",
				sum.TotalRegistered, sum.TotalSelected, sum.TotalRejected, sum.TotalAttempted, sum.TotalAbsent, sum.TotalCompleted, sum.TotalPending),
		},
	}
}

func (s *ReportingService) readCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("report cache unavailable", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func reportEvent(row models.ParticipationWithEvent) models.StudentReportEvent {
	out := models.StudentReportEvent{
		EventID:       row.EventID,
		Status:        row.Status,
		Stage:         row.Stage,
		StageMetadata: row.StageDetails,
		Description:   row.Description,
		RegisteredAt:  row.CreatedAt,
	}
	if row.LiveEventName == nil {
		out.EventName = models.RemovedEventName
		out.OrganizingCompany = models.RemovedEventCompany
		out.JobRole = models.RemovedEventRole
		out.EventRemoved = true
		return out
	}
	out.EventName = *row.LiveEventName
	out.OrganizingCompany = deref(row.LiveOrganizingCompany)
	out.JobRole = deref(row.LiveJobRole)
	out.RegistrationStart = row.LiveRegistrationStart
	out.RegistrationEnd = row.LiveRegistrationEnd
	out.ExpectedCGPA = row.LiveExpectedCGPA
	out.ExpectedPackage = row.LiveExpectedPackage
	out.EventMode = deref(row.LiveEventMode)
	return out
}

func countStatus(sum *models.StudentReportSummary, status models.ParticipationStatus) {
	switch status {
	case models.ParticipationSelected:
		sum.TotalSelected++
	case models.ParticipationRejected:
		sum.TotalRejected++
	case models.ParticipationAttempted:
		sum.TotalAttempted++
	case models.ParticipationAbsent:
		sum.TotalAbsent++
	case models.ParticipationCompleted:
		sum.TotalCompleted++
	case models.ParticipationRegistered:
		sum.TotalPending++
	}
}

// rosterEntry falls back to the names copied at registration when the student
// row no longer exists.
func rosterEntry(rec models.RosterRecord) models.RosterEntry {
	entry := models.RosterEntry{
		AdmissionNumber: rec.StudentAdmissionNumber,
		Status:          rec.Status,
		Stage:           rec.Stage,
		Description:     rec.Description,
		RegisteredAt:    rec.CreatedAt,
	}
	if rec.FirstName == nil {
		first, last, _ := strings.Cut(rec.StudentName, " ")
		entry.FirstName = first
		entry.LastName = last
		entry.Department = rec.StudentDepartment
		entry.StudentRemoved = true
		return entry
	}
	entry.FirstName = *rec.FirstName
	entry.LastName = deref(rec.LastName)
	entry.Department = deref(rec.Department)
	entry.Batch = deref(rec.Batch)
	entry.Course = deref(rec.Course)
	entry.CGPA = rec.CGPA
	entry.TenthPercentage = rec.TenthPercentage
	entry.TwelfthPercentage = rec.TwelfthPercentage
	if rec.BacklogCount != nil {
		entry.BacklogCount = *rec.BacklogCount
	}
	entry.Email = deref(rec.Email)
	entry.Mobile = deref(rec.Mobile)
	entry.UniversityRollNo = deref(rec.UniversityRollNo)
	entry.EnrollmentNo = deref(rec.EnrollmentNo)
	return entry
}

func formatDecimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
