package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

const eventColumns = `event_id, event_name, organizing_company, company_id, job_role, registration_start, registration_end,
        event_mode, expected_cgpa, expected_package, description, eligible_departments, status, created_at, updated_at`

// EventRepository persists recruitment events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events matching the filter with the total count.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.Company != "" {
		args = append(args, strings.ToLower(filter.Company))
		conditions = append(conditions, fmt.Sprintf("LOWER(organizing_company) = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(event_name) LIKE $%d OR LOWER(organizing_company) LIKE $%d OR LOWER(COALESCE(job_role, '')) LIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.Timeline != "" {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		args = append(args, now)
		switch filter.Timeline {
		case models.TimelineUpcoming:
			conditions = append(conditions, fmt.Sprintf("registration_start > $%d", len(args)))
		case models.TimelinePast:
			conditions = append(conditions, fmt.Sprintf("registration_end < $%d", len(args)))
		default:
			conditions = append(conditions, fmt.Sprintf("registration_start <= $%d AND registration_end >= $%d", len(args), len(args)))
		}
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"event_name":         "event_name",
		"organizing_company": "organizing_company",
		"registration_start": "registration_start",
		"registration_end":   "registration_end",
		"created_at":         "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "registration_start"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM events %s ORDER BY %s %s LIMIT %d OFFSET %d", eventColumns, where, column, order, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM events "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID fetches an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE event_id = $1"
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ExistsByID reports whether the event id is taken.
func (r *EventRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM events WHERE event_id = $1)", id); err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return exists, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.EligibleDepartments == nil {
		event.EligibleDepartments = models.StringList{}
	}
	const query = `INSERT INTO events (event_id, event_name, organizing_company, company_id, job_role, registration_start, registration_end,
        event_mode, expected_cgpa, expected_package, description, eligible_departments, status, created_at, updated_at)
        VALUES (:event_id, :event_name, :organizing_company, :company_id, :job_role, :registration_start, :registration_end,
        :event_mode, :expected_cgpa, :expected_package, :description, :eligible_departments, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET event_name = :event_name, organizing_company = :organizing_company, company_id = :company_id,
        job_role = :job_role, registration_start = :registration_start, registration_end = :registration_end, event_mode = :event_mode,
        expected_cgpa = :expected_cgpa, expected_package = :expected_package, description = :description,
        eligible_departments = :eligible_departments, status = :status, updated_at = :updated_at
        WHERE event_id = :event_id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res, "update event")
}

// Delete removes the event and every participation of it in one transaction
// and returns the number of participations removed. The event row is locked
// first so registrations racing the delete cannot outlive it.
func (r *EventRepository) Delete(ctx context.Context, id string) (removed int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin event delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT event_id FROM events WHERE event_id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("lock event: %w", err)
	}

	if removed, err = NewParticipationRepository(r.db).DeleteAllForEventWithTx(ctx, tx, id); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id); err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit event delete: %w", err)
	}
	return removed, nil
}
