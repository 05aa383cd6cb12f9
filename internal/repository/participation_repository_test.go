package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var participationRowColumns = []string{"id", "student_admission_number", "event_id", "status", "stage", "stage_metadata", "description",
	"student_name", "student_department", "event_name", "organizing_company", "job_role", "registration_start", "registration_end",
	"created_at", "updated_at"}

func TestParticipationRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM participations WHERE student_admission_number = $1 AND event_id = $2)")).
		WithArgs("A1", "E1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "A1", "E1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryFindAllForEventDecodesStageMetadata(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(participationRowColumns).
		AddRow("p1", "A1", "E1", "ATTEMPTED", "OA", []byte(`{"kind":"OA","link":"http://oa.test"}`), "Online assessment link: http://oa.test",
			"Asha Rao", "CSE", "Campus Drive", "Infosys", "SDE", now, now, now, now).
		AddRow("p2", "A2", "E1", "REGISTERED", "REGISTRATION", []byte("{}"), "",
			"Ravi K", "ECE", "Campus Drive", "Infosys", "SDE", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM participations WHERE event_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("E1").
		WillReturnRows(rows)

	items, err := repo.FindAllForEvent(context.Background(), "E1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	oa, ok := items[0].StageDetails.Metadata.(models.OnlineAssessment)
	require.True(t, ok)
	assert.Equal(t, "http://oa.test", oa.Link)
	assert.Equal(t, models.ParticipationRegistered, items[1].Status)
	assert.Nil(t, items[1].StageDetails.Metadata)
	assert.Nil(t, items[1].RegistrationEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery("FROM participations WHERE student_admission_number = \\$1 AND event_id = \\$2").
		WithArgs("A9", "E1").
		WillReturnRows(sqlmock.NewRows(participationRowColumns))

	_, err := repo.Find(context.Background(), "A9", "E1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec("INSERT INTO participations").
		WithArgs(sqlmock.AnyArg(), "A1", "E1", models.ParticipationRegistered, models.StageRegistration, []byte("{}"), "",
			"Asha Rao", "CSE", "Campus Drive", "Infosys", "SDE", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationRegistered, Stage: models.StageRegistration,
		StudentName: "Asha Rao", StudentDepartment: "CSE", EventName: "Campus Drive", OrganizingCompany: "Infosys", JobRole: "SDE"}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryInsertDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec("INSERT INTO participations").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "participations_student_event_key"})

	p := &models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationRegistered, Stage: models.StageRegistration}
	err := repo.Upsert(context.Background(), p)
	assert.ErrorIs(t, err, ErrDuplicateParticipation)
	assert.Empty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryInsertForDeletedEvent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec("INSERT INTO participations").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "participations_event_fk"})

	err := repo.Upsert(context.Background(), &models.Participation{StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationRegistered})
	assert.ErrorIs(t, err, ErrEventGone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryInsertOtherFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec("INSERT INTO participations").WillReturnError(errors.New("connection reset"))

	err := repo.Upsert(context.Background(), &models.Participation{StudentAdmissionNumber: "A1", EventID: "E1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateParticipation))
}

func TestParticipationRepositoryUpdateByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status NOT IN ('SELECTED', 'REJECTED')")).
		WithArgs(models.ParticipationSelected, models.StageFinalSelection, sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.Participation{ID: "p1", Status: models.ParticipationSelected, Stage: models.StageFinalSelection,
		StageDetails: models.StageDetails{Metadata: models.FinalSelection{}}}
	require.NoError(t, repo.Upsert(context.Background(), p))

	mock.ExpectExec("UPDATE participations SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM participations WHERE id = $1)")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	err := repo.Upsert(context.Background(), &models.Participation{ID: "gone"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryUpdateByIDLeavesFinalisedRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	// Another request selected the student after this caller read the row.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status NOT IN ('SELECTED', 'REJECTED')")).
		WithArgs(models.ParticipationRejected, models.StageOA, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM participations WHERE id = $1)")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	p := &models.Participation{ID: "p1", StudentAdmissionNumber: "A1", EventID: "E1", Status: models.ParticipationRejected, Stage: models.StageOA}
	err := repo.Upsert(context.Background(), p)
	assert.ErrorIs(t, err, ErrParticipationFinalised)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryUpdateStatusSkipsTerminal(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE participations SET status = $2, updated_at = $3 WHERE id = $1 AND status NOT IN ($4, $5)")).
		WithArgs("p1", models.ParticipationAbsent, sqlmock.AnyArg(), models.ParticipationSelected, models.ParticipationRejected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.UpdateStatus(context.Background(), "p1", models.ParticipationAbsent)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryDeleteAllForEvent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM participations WHERE event_id = $1")).
		WithArgs("E1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteAllForEvent(context.Background(), "E1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryListRosterKeepsOrphans(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	now := time.Now()
	cols := append(append([]string{}, participationRowColumns...), "first_name", "last_name", "department", "batch", "course", "cgpa",
		"tenth_percentage", "twelfth_percentage", "backlog_count", "email", "mobile", "university_roll_no", "enrollment_no")
	rows := sqlmock.NewRows(cols).
		AddRow("p1", "A1", "E1", "REGISTERED", "REGISTRATION", nil, "", "Asha Rao", "CSE", "Drive", "Infosys", "SDE", nil, nil, now, now,
			"Asha", "Rao", "CSE", "2021", "B.Tech", 8.7, 91.0, 88.5, 0, "asha@example.edu", "99999", "U1", "EN1").
		AddRow("p2", "A2", "E1", "REJECTED", "OA", nil, "", "Ravi K", "ECE", "Drive", "Infosys", "SDE", nil, nil, now, now,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery("LEFT JOIN students s ON s.admission_number = p.student_admission_number").
		WithArgs("E1").
		WillReturnRows(rows)

	records, err := repo.ListRoster(context.Background(), "E1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].CGPA)
	assert.Equal(t, 8.7, *records[0].CGPA)
	assert.Nil(t, records[1].FirstName)
	assert.Equal(t, "Ravi K", records[1].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
