package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
)

func TestDashboardRepositoryTotals(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM messages WHERE status = 'unread') AS unread_messages")).
		WillReturnRows(sqlmock.NewRows([]string{"students", "companies", "events", "registrations", "unread_messages"}).
			AddRow(120, 8, 14, 300, 3))

	totals, err := repo.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DashboardTotals{Students: 120, Companies: 8, Events: 14, Registrations: 300, UnreadMessages: 3}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositoryStatusBreakdownScopesCompany(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN events e ON e.event_id = p.event_id WHERE e.company_id = $1 GROUP BY p.status")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("ATTEMPTED", 4).
			AddRow("SELECTED", 1))

	counts, err := repo.StatusBreakdown(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.ParticipationAttempted, counts[0].Status)
	assert.Equal(t, 1, counts[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositoryEventActivityFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND e.company_id = $1 AND e.registration_end >= $2 GROUP BY e.event_id ORDER BY e.registration_end ASC, e.event_id ASC LIMIT $3")).
		WithArgs("c1", now, 5).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "event_name", "organizing_company", "registration_start", "registration_end",
			"registrations", "attempted", "selected", "rejected"}).
			AddRow("e1", "Campus Drive", "Acme", now.Add(-time.Hour), now.Add(time.Hour), 10, 4, 1, 2))

	events, err := repo.EventActivity(context.Background(), models.EventActivityFilter{CompanyID: "c1", EndingAfter: &now, Limit: 5})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 10, events[0].Registrations)
	assert.Equal(t, 2, events[0].Rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
