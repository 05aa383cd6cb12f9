package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
)

func TestCompanyRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompanyRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"company_id", "company_name", "hr_name", "hr_email", "hr_phone", "photo_link", "created_at", "updated_at"}).
		AddRow("c1", "Infosys", "Meera", "hr@infosys.test", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE 1=1 AND (LOWER(company_name) LIKE $1 OR LOWER(hr_name) LIKE $1 OR LOWER(hr_email) LIKE $1) ORDER BY company_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%info%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM companies WHERE 1=1 AND")).
		WithArgs("%info%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	companies, total, err := repo.List(context.Background(), models.CompanyFilter{Search: "Info"})
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Infosys", companies[0].Name)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompanyRepository(db)

	mock.ExpectExec("INSERT INTO companies").WillReturnError(&pq.Error{Code: "23505"})

	company := &models.Company{Name: "Infosys", HRName: "Meera", HREmail: "hr@infosys.test"}
	assert.ErrorIs(t, repo.Create(context.Background(), company), ErrDuplicateCompany)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryCreateDefaultsUnread(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "Ravi", "ravi@example.com", "Hello", "When is the drive?", models.MessageUnread, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	msg := &models.Message{SenderName: "Ravi", SenderEmail: "ravi@example.com", Subject: "Hello", Body: "When is the drive?"}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	status := models.MessageRead
	mock.ExpectQuery(regexp.QuoteMeta("FROM messages WHERE 1=1 AND status = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_name", "sender_email", "subject", "body", "status", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE 1=1 AND status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.MessageFilter{Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectExec("UPDATE messages SET status").
		WithArgs("m1", models.MessageReplied, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "m1", models.MessageReplied), sql.ErrNoRows)
}

func TestMessageRepositoryCountUnread(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE status = $1")).
		WithArgs(models.MessageUnread).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountUnread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
