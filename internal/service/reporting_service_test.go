package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

type reportStoreStub struct {
	history map[string][]models.ParticipationWithEvent
	rosters map[string][]models.RosterRecord
	loads   int
	err     error
}

func (s *reportStoreStub) FindAllForStudentWithEvents(_ context.Context, studentID string) ([]models.ParticipationWithEvent, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.history[studentID], nil
}

func (s *reportStoreStub) ListRoster(_ context.Context, eventID string) ([]models.RosterRecord, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.rosters[eventID], nil
}

func (s *reportStoreStub) CountForEvent(_ context.Context, eventID string) (int, error) {
	return len(s.rosters[eventID]), s.err
}

// brokenCacheRepo fails every read the way an unreachable redis would.
type brokenCacheRepo struct{ *recordingCacheRepo }

func (brokenCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("dial tcp: connection refused")
}

func strPtr(s string) *string { return &s }

func withEvent(p models.Participation, name string) models.ParticipationWithEvent {
	return models.ParticipationWithEvent{
		Participation:         p,
		LiveEventName:         strPtr(name),
		LiveOrganizingCompany: strPtr("Infosys"),
		LiveJobRole:           strPtr("SDE"),
		LiveEventMode:         strPtr("ONLINE"),
	}
}

func newReportingFixture(store *reportStoreStub, cacheRepo CacheRepository) *ReportingService {
	students := newMemStudentDirectory("A1", "A2")
	events := newMemEventDirectory(openEvent("E1", registrationNow))
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), cacheRepo != nil)
	return NewReportingService(store, students, events, cache, export.NewRenderer(), zap.NewNop())
}

func TestStudentReportSummaryAndRemovedEvent(t *testing.T) {
	store := &reportStoreStub{history: map[string][]models.ParticipationWithEvent{
		"A1": {
			withEvent(models.Participation{EventID: "E1", StudentAdmissionNumber: "A1", Status: models.ParticipationSelected, Stage: models.StageFinalSelection}, "Drive E1"),
			withEvent(models.Participation{EventID: "E2", StudentAdmissionNumber: "A1", Status: models.ParticipationRegistered, Stage: models.StageRegistration}, "Drive E2"),
			{Participation: models.Participation{EventID: "E3", StudentAdmissionNumber: "A1", Status: models.ParticipationRejected, Stage: models.StageOA, EventName: "Old drive"}},
		},
	}}
	svc := newReportingFixture(store, nil)

	report, hit, err := svc.StudentReport(context.Background(), "A1")
	require.NoError(t, err)
	require.False(t, hit)
	assert.Equal(t, models.StudentReportSummary{TotalRegistered: 3, TotalSelected: 1, TotalRejected: 1, TotalPending: 1}, report.Summary)
	require.Len(t, report.Events, 3)
	assert.Equal(t, "Drive E1", report.Events[0].EventName)
	assert.Equal(t, "SDE", report.Events[0].JobRole)

	removed := report.Events[2]
	assert.True(t, removed.EventRemoved)
	assert.Equal(t, models.RemovedEventName, removed.EventName)
	assert.Equal(t, models.RemovedEventCompany, removed.OrganizingCompany)
	assert.Equal(t, models.RemovedEventRole, removed.JobRole)
	assert.Nil(t, removed.RegistrationStart)
}

func TestStudentReportWithoutParticipations(t *testing.T) {
	svc := newReportingFixture(&reportStoreStub{}, nil)
	report, _, err := svc.StudentReport(context.Background(), "A2")
	require.NoError(t, err)
	assert.Equal(t, models.StudentReportSummary{}, report.Summary)
	assert.NotNil(t, report.Events)
	assert.Empty(t, report.Events)

	_, _, err = svc.StudentReport(context.Background(), "ghost")
	assertAppError(t, err, 404, "student not found")
}

func TestStudentReportServedFromCache(t *testing.T) {
	store := &reportStoreStub{history: map[string][]models.ParticipationWithEvent{
		"A1": {withEvent(models.Participation{EventID: "E1", StudentAdmissionNumber: "A1", Status: models.ParticipationAttempted}, "Drive E1")},
	}}
	cacheRepo := newRecordingCacheRepo()
	svc := newReportingFixture(store, cacheRepo)
	ctx := context.Background()

	_, hit, err := svc.StudentReport(ctx, "A1")
	require.NoError(t, err)
	require.False(t, hit)
	require.Contains(t, cacheRepo.values, StudentReportKey("A1"))

	cached, hit, err := svc.StudentReport(ctx, "A1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 1, cached.Summary.TotalAttempted)
	require.Equal(t, 1, store.loads)
}

func TestReportsDegradeWhenCacheUnavailable(t *testing.T) {
	store := &reportStoreStub{rosters: map[string][]models.RosterRecord{"E1": {}}}
	svc := newReportingFixture(store, &brokenCacheRepo{newRecordingCacheRepo()})

	roster, hit, err := svc.EventRoster(context.Background(), "E1")
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 0, roster.Total)
}

func TestEventRosterJoinsLiveStudentsAndFallsBack(t *testing.T) {
	cgpa := 8.456
	backlogs := 1
	store := &reportStoreStub{rosters: map[string][]models.RosterRecord{"E1": {
		{
			Participation: models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationSelected},
			FirstName:     strPtr("Asha"), LastName: strPtr("Rao"), Department: strPtr("CSE"), Batch: strPtr("2022"),
			CGPA: &cgpa, BacklogCount: &backlogs, Email: strPtr("asha@example.com"),
		},
		{
			Participation: models.Participation{StudentAdmissionNumber: "A9", EventID: "E1", Status: models.ParticipationRejected, StudentName: "Ravi Kumar Singh", StudentDepartment: "ECE"},
		},
	}}}
	svc := newReportingFixture(store, nil)

	roster, _, err := svc.EventRoster(context.Background(), "E1")
	require.NoError(t, err)
	require.Equal(t, 2, roster.Total)
	require.Equal(t, "Drive E1", roster.EventName)
	assert.Equal(t, "Asha", roster.Entries[0].FirstName)
	assert.Equal(t, 1, roster.Entries[0].BacklogCount)
	assert.False(t, roster.Entries[0].StudentRemoved)

	orphan := roster.Entries[1]
	assert.True(t, orphan.StudentRemoved)
	assert.Equal(t, "Ravi", orphan.FirstName)
	assert.Equal(t, "Kumar Singh", orphan.LastName)
	assert.Equal(t, "ECE", orphan.Department)

	_, _, err = svc.EventRoster(context.Background(), "missing")
	assertAppError(t, err, 404, "event not found")

	count, err := svc.RegistrationCount(context.Background(), "E1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestExportEventRosterCSV(t *testing.T) {
	cgpa := 8.456
	store := &reportStoreStub{rosters: map[string][]models.RosterRecord{"E1": {
		{
			Participation: models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationSelected},
			FirstName:     strPtr("Asha"), LastName: strPtr("Rao"), CGPA: &cgpa,
		},
	}}}
	svc := newReportingFixture(store, nil)

	file, err := svc.ExportEventRoster(context.Background(), "E1", export.FormatCSV)
	require.NoError(t, err)
	require.Equal(t, "E1-registrations.csv", file.Name)
	require.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, RosterHeaders, records[0])
	require.Equal(t, "8.46", records[1][6])
	require.Equal(t, "SELECTED", records[1][14])
}

func TestExportStudentReportPDF(t *testing.T) {
	store := &reportStoreStub{history: map[string][]models.ParticipationWithEvent{
		"A1": {withEvent(models.Participation{EventID: "E1", StudentAdmissionNumber: "A1", Status: models.ParticipationAttempted, Stage: models.StageOA}, "Drive E1")},
	}}
	svc := newReportingFixture(store, nil)

	file, err := svc.ExportStudentReport(context.Background(), "A1", export.FormatPDF)
	require.NoError(t, err)
	require.Equal(t, "A1-report.pdf", file.Name)
	require.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}
