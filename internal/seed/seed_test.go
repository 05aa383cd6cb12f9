package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

const fixtureYAML = `
admins:
  - email: tpo@college.edu
    full_name: Placement Officer
    password: secret123
companies:
  - name: Acme
    hr_name: Meera
    hr_email: hr@acme.com
    password: secret123
students:
  - admission_number: 22CSE001
    first_name: Asha
    last_name: Rao
    email: asha@college.edu
    department: CSE
    batch: "2026"
    cgpa: 8.4
events:
  - id: ACME-2026-SDE
    name: SDE Drive
    company: Acme
    job_role: Software Engineer
    registration_start: 2026-03-01T09:00:00Z
    registration_end: 2026-03-15T18:00:00Z
    mode: online
    eligible_departments: [CSE, IT]
`

type fakeAccounts struct{ emails map[string]bool }

func (f *fakeAccounts) Provision(_ context.Context, req service.ProvisionAccountRequest) (*models.User, error) {
	if f.emails[req.Email] {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	f.emails[req.Email] = true
	return &models.User{ID: uuid.NewString(), Email: req.Email, Role: req.Role}, nil
}

type fakeCompanies struct{ byName map[string]models.Company }

func (f *fakeCompanies) Create(_ context.Context, req service.CreateCompanyRequest) (*models.Company, error) {
	key := strings.ToLower(req.CompanyName)
	if _, ok := f.byName[key]; ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "company name already exists")
	}
	c := models.Company{ID: uuid.NewString(), Name: req.CompanyName, HREmail: req.HREmail}
	f.byName[key] = c
	return &c, nil
}

func (f *fakeCompanies) List(context.Context, models.CompanyFilter) ([]models.Company, *models.Pagination, error) {
	out := make([]models.Company, 0, len(f.byName))
	for _, c := range f.byName {
		out = append(out, c)
	}
	return out, &models.Pagination{TotalCount: len(out)}, nil
}

type fakeStudents struct {
	created map[string]service.CreateStudentRequest
	err     error
}

func (f *fakeStudents) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.created[req.AdmissionNumber]; ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already exists")
	}
	f.created[req.AdmissionNumber] = req
	return &models.Student{AdmissionNumber: req.AdmissionNumber}, nil
}

type fakeEvents struct {
	created map[string]service.CreateEventRequest
}

func (f *fakeEvents) Create(_ context.Context, req service.CreateEventRequest, actor service.Actor) (*models.Event, error) {
	if actor.Role != models.RoleAdmin {
		return nil, errors.New("seed must act as admin")
	}
	if _, ok := f.created[req.EventID]; ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event id already exists")
	}
	f.created[req.EventID] = req
	return &models.Event{ID: req.EventID}, nil
}

func newTestSeeder() (*Seeder, *fakeCompanies, *fakeStudents, *fakeEvents) {
	companies := &fakeCompanies{byName: map[string]models.Company{}}
	students := &fakeStudents{created: map[string]service.CreateStudentRequest{}}
	events := &fakeEvents{created: map[string]service.CreateEventRequest{}}
	return &Seeder{
		Accounts:  &fakeAccounts{emails: map[string]bool{}},
		Companies: companies,
		Students:  students,
		Events:    events,
	}, companies, students, events
}

func TestParseFixture(t *testing.T) {
	fx, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, fx.Events, 1)
	assert.Equal(t, "SDE Drive", fx.Events[0].Name)
	assert.Equal(t, 15, fx.Events[0].RegistrationEnd.Day())
	require.NotNil(t, fx.Students[0].CGPA)
	assert.InDelta(t, 8.4, *fx.Students[0].CGPA, 0.001)

	_, err = Parse([]byte("admins: [oops"))
	assert.Error(t, err)
}

func TestSeederApplyIsIdempotent(t *testing.T) {
	fx, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)
	seeder, companies, students, events := newTestSeeder()

	sum, err := seeder.Apply(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 4}, sum)

	acme := companies.byName["acme"]
	ev := events.created["ACME-2026-SDE"]
	require.NotNil(t, ev.CompanyID)
	assert.Equal(t, acme.ID, *ev.CompanyID)
	assert.Equal(t, models.EventModeOnline, ev.EventMode)
	assert.Contains(t, students.created, "22CSE001")

	delete(events.created, "ACME-2026-SDE")
	sum, err = seeder.Apply(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 1, Skipped: 3}, sum)
	ev = events.created["ACME-2026-SDE"]
	require.NotNil(t, ev.CompanyID, "company id resolved from existing companies")
	assert.Equal(t, acme.ID, *ev.CompanyID)
}

func TestSeederApplyStopsOnFailure(t *testing.T) {
	fx, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)
	seeder, _, students, events := newTestSeeder()
	students.err = appErrors.Clone(appErrors.ErrValidation, "invalid student payload")

	_, err = seeder.Apply(context.Background(), fx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed student 22CSE001")
	assert.Empty(t, events.created)
}
