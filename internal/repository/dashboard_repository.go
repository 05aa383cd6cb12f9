package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

// DashboardRepository exposes read-only aggregate queries for dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals counts rows across the directories.
func (r *DashboardRepository) Totals(ctx context.Context) (models.DashboardTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM companies) AS companies,
        (SELECT COUNT(*) FROM events) AS events,
        (SELECT COUNT(*) FROM participations) AS registrations,
        (SELECT COUNT(*) FROM messages WHERE status = 'unread') AS unread_messages`
	var totals models.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return models.DashboardTotals{}, fmt.Errorf("query dashboard totals: %w", err)
	}
	return totals, nil
}

// Timeline splits events into upcoming, ongoing and past relative to now.
func (r *DashboardRepository) Timeline(ctx context.Context, now time.Time) (models.TimelineCounts, error) {
	const query = `SELECT
        COALESCE(SUM(CASE WHEN registration_start > $1 THEN 1 ELSE 0 END), 0) AS upcoming,
        COALESCE(SUM(CASE WHEN registration_start <= $1 AND registration_end >= $1 THEN 1 ELSE 0 END), 0) AS ongoing,
        COALESCE(SUM(CASE WHEN registration_end < $1 THEN 1 ELSE 0 END), 0) AS past
        FROM events`
	var counts models.TimelineCounts
	if err := r.db.GetContext(ctx, &counts, query, now); err != nil {
		return models.TimelineCounts{}, fmt.Errorf("query event timeline: %w", err)
	}
	return counts, nil
}

// StatusBreakdown counts participations per status, optionally for one company's events.
func (r *DashboardRepository) StatusBreakdown(ctx context.Context, companyID string) ([]models.StatusCount, error) {
	var builder strings.Builder
	builder.WriteString("SELECT p.status, COUNT(*) AS count FROM participations p")
	var args []interface{}
	if companyID != "" {
		args = append(args, companyID)
		builder.WriteString(fmt.Sprintf(" JOIN events e ON e.event_id = p.event_id WHERE e.company_id = $%d", len(args)))
	}
	builder.WriteString(" GROUP BY p.status ORDER BY p.status")

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query participation breakdown: %w", err)
	}
	return counts, nil
}

// DepartmentPlacements counts students and distinct selected students per department.
func (r *DashboardRepository) DepartmentPlacements(ctx context.Context) ([]models.DepartmentPlacement, error) {
	const query = `SELECT s.department,
        COUNT(*) AS students,
        COUNT(*) FILTER (WHERE EXISTS (
            SELECT 1 FROM participations p
            WHERE p.student_admission_number = s.admission_number AND p.status = 'SELECTED'
        )) AS placed
        FROM students s
        GROUP BY s.department
        ORDER BY s.department`
	var rows []models.DepartmentPlacement
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query department placements: %w", err)
	}
	return rows, nil
}

// EventActivity lists events with their registration funnel, soonest closing first.
func (r *DashboardRepository) EventActivity(ctx context.Context, filter models.EventActivityFilter) ([]models.EventActivity, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT e.event_id, e.event_name, e.organizing_company, e.registration_start, e.registration_end,
        COUNT(p.id) AS registrations,
        COUNT(p.id) FILTER (WHERE p.status = 'ATTEMPTED') AS attempted,
        COUNT(p.id) FILTER (WHERE p.status = 'SELECTED') AS selected,
        COUNT(p.id) FILTER (WHERE p.status = 'REJECTED') AS rejected
        FROM events e
        LEFT JOIN participations p ON p.event_id = e.event_id
        WHERE 1=1`)
	var args []interface{}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		builder.WriteString(fmt.Sprintf(" AND e.company_id = $%d", len(args)))
	}
	if filter.EndingAfter != nil {
		args = append(args, *filter.EndingAfter)
		builder.WriteString(fmt.Sprintf(" AND e.registration_end >= $%d", len(args)))
	}
	builder.WriteString(" GROUP BY e.event_id ORDER BY e.registration_end ASC, e.event_id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		builder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	var rows []models.EventActivity
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query event activity: %w", err)
	}
	return rows, nil
}
