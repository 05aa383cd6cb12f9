package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

const participationColumns = `id, student_admission_number, event_id, status, stage, stage_metadata, description,
        student_name, student_department, event_name, organizing_company, job_role, registration_start, registration_end,
        created_at, updated_at`

// ParticipationRepository stores the (student, event) lifecycle records. A
// unique index on (student_admission_number, event_id) guards against duplicates.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs a ParticipationRepository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Exists reports whether the student already participates in the event.
func (r *ParticipationRepository) Exists(ctx context.Context, studentID, eventID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM participations WHERE student_admission_number = $1 AND event_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, eventID); err != nil {
		return false, fmt.Errorf("check participation: %w", err)
	}
	return exists, nil
}

// Find returns the participation for the pair or sql.ErrNoRows.
func (r *ParticipationRepository) Find(ctx context.Context, studentID, eventID string) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE student_admission_number = $1 AND event_id = $2`
	var p models.Participation
	if err := r.db.GetContext(ctx, &p, query, studentID, eventID); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindAllForEvent lists every participation of an event in registration order.
func (r *ParticipationRepository) FindAllForEvent(ctx context.Context, eventID string) ([]models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE event_id = $1 ORDER BY created_at ASC, id ASC`
	var items []models.Participation
	if err := r.db.SelectContext(ctx, &items, query, eventID); err != nil {
		return nil, fmt.Errorf("list event participations: %w", err)
	}
	return items, nil
}

// FindAllForStudent lists a student's participations, newest first.
func (r *ParticipationRepository) FindAllForStudent(ctx context.Context, studentID string) ([]models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE student_admission_number = $1 ORDER BY created_at DESC, id ASC`
	var items []models.Participation
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student participations: %w", err)
	}
	return items, nil
}

// FindAllForStudentWithEvents left-joins each participation with its live event.
func (r *ParticipationRepository) FindAllForStudentWithEvents(ctx context.Context, studentID string) ([]models.ParticipationWithEvent, error) {
	const query = `SELECT p.id, p.student_admission_number, p.event_id, p.status, p.stage, p.stage_metadata, p.description,
        p.student_name, p.student_department, p.event_name, p.organizing_company, p.job_role, p.registration_start, p.registration_end,
        p.created_at, p.updated_at,
        e.event_name AS live_event_name, e.organizing_company AS live_organizing_company, e.job_role AS live_job_role,
        e.registration_start AS live_registration_start, e.registration_end AS live_registration_end,
        e.expected_cgpa AS live_expected_cgpa, e.expected_package AS live_expected_package, e.event_mode AS live_event_mode
        FROM participations p
        LEFT JOIN events e ON e.event_id = p.event_id
        WHERE p.student_admission_number = $1
        ORDER BY p.created_at DESC, p.id ASC`
	var items []models.ParticipationWithEvent
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student participations with events: %w", err)
	}
	return items, nil
}

// ListRoster left-joins the event's participations with live student rows.
func (r *ParticipationRepository) ListRoster(ctx context.Context, eventID string) ([]models.RosterRecord, error) {
	const query = `SELECT p.id, p.student_admission_number, p.event_id, p.status, p.stage, p.stage_metadata, p.description,
        p.student_name, p.student_department, p.event_name, p.organizing_company, p.job_role, p.registration_start, p.registration_end,
        p.created_at, p.updated_at,
        s.first_name, s.last_name, s.department, s.batch, s.course, s.cgpa, s.tenth_percentage, s.twelfth_percentage,
        s.backlog_count, s.email, s.mobile, s.university_roll_no, s.enrollment_no
        FROM participations p
        LEFT JOIN students s ON s.admission_number = p.student_admission_number
        WHERE p.event_id = $1
        ORDER BY p.created_at ASC, p.id ASC`
	var items []models.RosterRecord
	if err := r.db.SelectContext(ctx, &items, query, eventID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return items, nil
}

// CountForEvent returns the number of participations of an event.
func (r *ParticipationRepository) CountForEvent(ctx context.Context, eventID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM participations WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("count participations: %w", err)
	}
	return total, nil
}

// Upsert inserts p when it has no ID and otherwise overwrites it by ID. A
// second insert for an existing pair yields ErrDuplicateParticipation. Stored
// SELECTED and REJECTED rows are never overwritten; such writes yield
// ErrParticipationFinalised.
func (r *ParticipationRepository) Upsert(ctx context.Context, p *models.Participation) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.ID == "" {
		return r.insert(ctx, p, now)
	}
	const query = `UPDATE participations SET status = :status, stage = :stage, stage_metadata = :stage_metadata,
        description = :description, student_name = :student_name, student_department = :student_department,
        event_name = :event_name, organizing_company = :organizing_company, job_role = :job_role,
        registration_start = :registration_start, registration_end = :registration_end, updated_at = :updated_at
        WHERE id = :id AND status NOT IN ('SELECTED', 'REJECTED')`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM participations WHERE id = $1)`, p.ID); err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	if exists {
		return ErrParticipationFinalised
	}
	return sql.ErrNoRows
}

func (r *ParticipationRepository) insert(ctx context.Context, p *models.Participation, now time.Time) error {
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	const query = `INSERT INTO participations (id, student_admission_number, event_id, status, stage, stage_metadata, description,
        student_name, student_department, event_name, organizing_company, job_role, registration_start, registration_end, created_at, updated_at)
        VALUES (:id, :student_admission_number, :event_id, :status, :stage, :stage_metadata, :description,
        :student_name, :student_department, :event_name, :organizing_company, :job_role, :registration_start, :registration_end, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		p.ID = ""
		if isUniqueViolation(err) {
			return ErrDuplicateParticipation
		}
		if isForeignKeyViolation(err) {
			return ErrEventGone
		}
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of a non-terminal participation. It reports
// false when the row is missing or already SELECTED/REJECTED.
func (r *ParticipationRepository) UpdateStatus(ctx context.Context, id string, status models.ParticipationStatus) (bool, error) {
	const query = `UPDATE participations SET status = $2, updated_at = $3 WHERE id = $1 AND status NOT IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.ParticipationSelected, models.ParticipationRejected)
	if err != nil {
		return false, fmt.Errorf("update participation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update participation status: %w", err)
	}
	return affected > 0, nil
}

// DeleteAllForEvent removes every participation of an event.
func (r *ParticipationRepository) DeleteAllForEvent(ctx context.Context, eventID string) (int64, error) {
	return r.DeleteAllForEventWithTx(ctx, r.db, eventID)
}

// DeleteAllForEventWithTx removes every participation of an event using an
// existing transaction.
func (r *ParticipationRepository) DeleteAllForEventWithTx(ctx context.Context, exec sqlx.ExecerContext, eventID string) (int64, error) {
	res, err := exec.ExecContext(ctx, `DELETE FROM participations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete event participations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete event participations: %w", err)
	}
	return affected, nil
}
