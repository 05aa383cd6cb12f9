package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
)

type eventRepoStub struct {
	events     map[string]models.Event
	lastFilter models.EventFilter
	deleted    []string
	// participations is cleared together with the event on Delete.
	participations *memParticipationStore
	deleteErr      error
}

func newEventRepoStub(events ...models.Event) *eventRepoStub {
	r := &eventRepoStub{events: map[string]models.Event{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *eventRepoStub) List(_ context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	r.lastFilter = filter
	out := make([]models.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *eventRepoStub) FindByID(_ context.Context, id string) (*models.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r *eventRepoStub) ExistsByID(_ context.Context, id string) (bool, error) {
	_, ok := r.events[id]
	return ok, nil
}

func (r *eventRepoStub) Create(_ context.Context, event *models.Event) error {
	r.events[event.ID] = *event
	return nil
}

func (r *eventRepoStub) Update(_ context.Context, event *models.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	r.events[event.ID] = *event
	return nil
}

func (r *eventRepoStub) Delete(_ context.Context, id string) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	if _, ok := r.events[id]; !ok {
		return 0, sql.ErrNoRows
	}
	var removed int64
	if r.participations != nil {
		r.participations.mu.Lock()
		for pid, p := range r.participations.records {
			if p.EventID == id {
				delete(r.participations.records, pid)
				removed++
			}
		}
		r.participations.mu.Unlock()
	}
	delete(r.events, id)
	r.deleted = append(r.deleted, id)
	return removed, nil
}

var eventClock = time.Date(2026, 3, 10, 14, 5, 9, 0, time.UTC)

func newEventServiceForTest(repo *eventRepoStub, cache *CacheService) *EventService {
	svc := NewEventService(repo, cache, nil, zap.NewNop())
	svc.now = func() time.Time { return eventClock }
	return svc
}

func TestGenerateEventID(t *testing.T) {
	assert.Equal(t, "TATACONSUL-100326140509", GenerateEventID("Tata Consultancy Services", eventClock))
	assert.Equal(t, "INFOSYS-100326140509", GenerateEventID(" infosys ", eventClock))
	assert.Equal(t, "EVENT-100326140509", GenerateEventID("   ", eventClock))
}

func TestEventServiceCreate(t *testing.T) {
	repo := newEventRepoStub()
	svc := newEventServiceForTest(repo, nil)
	start := eventClock.Add(24 * time.Hour)

	event, err := svc.Create(context.Background(), CreateEventRequest{
		EventName:         "Campus drive",
		OrganizingCompany: "Infosys",
		RegistrationStart: start,
		RegistrationEnd:   start.Add(48 * time.Hour),
	}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, "INFOSYS-100326140509", event.ID)
	assert.Equal(t, models.EventModeOnline, event.Mode)
	assert.Equal(t, models.EventStatusUpcoming, event.Status)
	assert.Contains(t, repo.events, event.ID)

	_, err = svc.Create(context.Background(), CreateEventRequest{
		EventName:         "Campus drive again",
		OrganizingCompany: "Infosys",
		RegistrationStart: start,
		RegistrationEnd:   start.Add(time.Hour),
	}, adminActor)
	assertAppError(t, err, 409, "event id already exists")
}

func TestEventServiceCreateValidation(t *testing.T) {
	svc := newEventServiceForTest(newEventRepoStub(), nil)
	_, err := svc.Create(context.Background(), CreateEventRequest{OrganizingCompany: "Infosys"}, adminActor)
	assertAppError(t, err, 400, "invalid event payload")

	_, err = svc.Create(context.Background(), CreateEventRequest{
		EventName:         "Drive",
		OrganizingCompany: "Infosys",
		RegistrationStart: eventClock,
		RegistrationEnd:   eventClock.Add(-time.Hour),
	}, adminActor)
	assertAppError(t, err, 400, "registrationEnd must be after registrationStart")

	_, err = svc.Create(context.Background(), CreateEventRequest{
		EventName:         "Drive",
		OrganizingCompany: "Infosys",
		RegistrationStart: eventClock,
		RegistrationEnd:   eventClock.Add(time.Hour),
		EventMode:         "SATELLITE",
	}, adminActor)
	assertAppError(t, err, 400, "invalid event payload")
}

func TestEventServiceCompanyOwnership(t *testing.T) {
	repo := newEventRepoStub()
	svc := newEventServiceForTest(repo, nil)
	company := Actor{UserID: "u-c1", Role: models.RoleCompany, ReferenceID: "c1"}

	event, err := svc.Create(context.Background(), CreateEventRequest{
		EventID:           "OWN-1",
		EventName:         "Drive",
		OrganizingCompany: "Acme",
		CompanyID:         strPtr("someone-else"),
		RegistrationStart: eventClock,
		RegistrationEnd:   eventClock.Add(time.Hour),
	}, company)
	require.NoError(t, err)
	require.Equal(t, "c1", *event.CompanyID)

	other := Actor{UserID: "u-c2", Role: models.RoleCompany, ReferenceID: "c2"}
	name := "Renamed"
	_, err = svc.Update(context.Background(), "OWN-1", UpdateEventRequest{EventName: &name}, other)
	assertAppError(t, err, 403, "event belongs to another company")
	assertAppError(t, svc.Delete(context.Background(), "OWN-1", other), 403, "event belongs to another company")

	updated, err := svc.Update(context.Background(), "OWN-1", UpdateEventRequest{EventName: &name}, company)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)

	require.NoError(t, svc.Authorize(context.Background(), "OWN-1", company))
	require.NoError(t, svc.Authorize(context.Background(), "missing", adminActor))
	assertAppError(t, svc.Authorize(context.Background(), "OWN-1", other), 403, "event belongs to another company")
	assertAppError(t, svc.Authorize(context.Background(), "missing", other), 404, "event not found")
}

func TestEventServiceUpdateValidatesWindow(t *testing.T) {
	repo := newEventRepoStub(openEvent("E1", eventClock))
	svc := newEventServiceForTest(repo, nil)
	end := eventClock.Add(-96 * time.Hour)
	_, err := svc.Update(context.Background(), "E1", UpdateEventRequest{RegistrationEnd: &end}, adminActor)
	assertAppError(t, err, 400, "registrationEnd must be after registrationStart")

	_, err = svc.Update(context.Background(), "missing", UpdateEventRequest{}, adminActor)
	assertAppError(t, err, 404, "event not found")
}

func TestEventServiceDeleteCascadesAndInvalidates(t *testing.T) {
	store := newMemParticipationStore(
		models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationRegistered},
		models.Participation{StudentAdmissionNumber: "A2", EventID: "E1", Status: models.ParticipationSelected},
		models.Participation{StudentAdmissionNumber: "A1", EventID: "E2", Status: models.ParticipationRegistered},
	)
	repo := newEventRepoStub(openEvent("E1", eventClock), openEvent("E2", eventClock))
	repo.participations = store
	cacheRepo := newRecordingCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := newEventServiceForTest(repo, cache)

	require.NoError(t, svc.Delete(context.Background(), "E1", adminActor))
	assert.Equal(t, []string{"E1"}, repo.deleted)
	assert.Len(t, store.records, 1)
	assert.Contains(t, cacheRepo.deleted, EventRosterKey("E1"))
	assert.Contains(t, cacheRepo.deleted, "reports:student:*")

	assertAppError(t, svc.Delete(context.Background(), "E1", adminActor), 404, "event not found")

	repo.deleteErr = errors.New("connection reset")
	assertAppError(t, svc.Delete(context.Background(), "E2", adminActor), 500, "failed to delete event")
	assert.Contains(t, repo.events, "E2")
	assert.Len(t, store.records, 1)
}

func TestEventServiceListRejectsUnknownTimeline(t *testing.T) {
	repo := newEventRepoStub(openEvent("E1", eventClock))
	svc := newEventServiceForTest(repo, nil)

	_, _, err := svc.List(context.Background(), models.EventFilter{Timeline: "someday"})
	assertAppError(t, err, 400, "")

	events, pagination, err := svc.List(context.Background(), models.EventFilter{Timeline: models.TimelineOngoing, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, eventClock, repo.lastFilter.Now)
	require.Equal(t, 100, pagination.PageSize)
}
