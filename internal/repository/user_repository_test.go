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

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "reference_id", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "asha@example.edu", "hash", "Asha Rao", string(models.RoleStudent), "A1", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, reference_id, active, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("asha@example.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "asha@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.edu", user.Email)
	require.NotNil(t, user.ReferenceID)
	assert.Equal(t, "A1", *user.ReferenceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByReferenceMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE role = \\$1 AND reference_id = \\$2").
		WithArgs(models.RoleCompany, "C1").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.FindByReference(context.Background(), models.RoleCompany, "C1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "a@example.edu", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "admin@example.edu", "hash", "Admin", string(models.RoleAdmin), nil, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 AND reference_id IS NULL ORDER BY created_at DESC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.RoleAdmin).
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1 AND reference_id IS NULL")).
		WithArgs(models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	role := models.RoleAdmin
	unlinked := false
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, Linked: &unlinked})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Nil(t, users[0].ReferenceID)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByReference(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE role = $1 AND reference_id = $2")).
		WithArgs(models.RoleStudent, "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByReference(context.Background(), models.RoleStudent, "A1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersSearchesReference(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 AND (LOWER(email) LIKE $2 OR LOWER(full_name) LIKE $2 OR LOWER(COALESCE(reference_id, '')) LIKE $2) ORDER BY email ASC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs(true, "%cs21%").
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE active = $1")).
		WithArgs(true, "%cs21%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	active := true
	users, total, err := repo.List(context.Background(), models.UserFilter{
		Active: &active, Search: " CS21 ", SortBy: "email", SortOrder: "asc", Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
