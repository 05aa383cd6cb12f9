package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors translated from unique index violations.
var (
	ErrDuplicateParticipation = errors.New("participation already exists for student and event")
	ErrDuplicateStudent       = errors.New("student already exists")
	ErrDuplicateCompany       = errors.New("company already exists")
	ErrDuplicateEvent         = errors.New("event already exists")
	ErrDuplicateEmail         = errors.New("email already in use")
)

// ErrEventGone is returned when a participation is written for an event that
// no longer exists.
var ErrEventGone = errors.New("event no longer exists")

// ErrParticipationFinalised is returned when a write targets a SELECTED or
// REJECTED participation.
var ErrParticipationFinalised = errors.New("participation already finalised")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	return hasPQCode(err, pqUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasPQCode(err, pqForeignKeyViolation)
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}

// expectAffected maps a zero-row write to sql.ErrNoRows.
func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
