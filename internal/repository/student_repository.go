package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

const studentColumns = `admission_number, first_name, last_name, father_name, mother_name, date_of_birth, gender, mobile, email,
        college_email, department, batch, course, cgpa, tenth_percentage, twelfth_percentage, backlog_count, address,
        university_roll_no, enrollment_no, resume_key, photo_key, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Batch != "" {
		args = append(args, filter.Batch)
		conditions = append(conditions, fmt.Sprintf("batch = $%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)))
	}
	if filter.MinCGPA != nil {
		args = append(args, *filter.MinCGPA)
		conditions = append(conditions, fmt.Sprintf("cgpa >= $%d", len(args)))
	}
	if filter.MaxBacklogs != nil {
		args = append(args, *filter.MaxBacklogs)
		conditions = append(conditions, fmt.Sprintf("backlog_count <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(admission_number) LIKE $%d OR LOWER(COALESCE(email, '')) LIKE $%d)", len(args), len(args), len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"admission_number": "admission_number",
		"first_name":       "first_name",
		"cgpa":             "cgpa",
		"batch":            "batch",
		"created_at":       "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
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

	query := fmt.Sprintf("SELECT %s FROM students %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, where, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByAdmissionNumber fetches a student by natural key.
func (r *StudentRepository) FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE admission_number = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, admissionNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByAdmissionNumbers loads the students of a cohort keyed by admission number.
func (r *StudentRepository) FindByAdmissionNumbers(ctx context.Context, admissionNumbers []string) (map[string]models.Student, error) {
	out := make(map[string]models.Student, len(admissionNumbers))
	if len(admissionNumbers) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+studentColumns+" FROM students WHERE admission_number IN (?)", admissionNumbers)
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	for _, s := range students {
		out[s.AdmissionNumber] = s
	}
	return out, nil
}

// Exists checks whether a student with the admission number exists.
func (r *StudentRepository) Exists(ctx context.Context, admissionNumber string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE admission_number = $1 LIMIT 1", admissionNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (admission_number, first_name, last_name, father_name, mother_name, date_of_birth, gender,
        mobile, email, college_email, department, batch, course, cgpa, tenth_percentage, twelfth_percentage, backlog_count, address,
        university_roll_no, enrollment_no, resume_key, photo_key, created_at, updated_at)
        VALUES (:admission_number, :first_name, :last_name, :father_name, :mother_name, :date_of_birth, :gender,
        :mobile, :email, :college_email, :department, :batch, :course, :cgpa, :tenth_percentage, :twelfth_percentage, :backlog_count, :address,
        :university_roll_no, :enrollment_no, :resume_key, :photo_key, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateStudent
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies the profile of an existing student. The admission number is immutable.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, father_name = :father_name,
        mother_name = :mother_name, date_of_birth = :date_of_birth, gender = :gender, mobile = :mobile, email = :email,
        college_email = :college_email, department = :department, batch = :batch, course = :course, cgpa = :cgpa,
        tenth_percentage = :tenth_percentage, twelfth_percentage = :twelfth_percentage, backlog_count = :backlog_count,
        address = :address, university_roll_no = :university_roll_no, enrollment_no = :enrollment_no, updated_at = :updated_at
        WHERE admission_number = :admission_number`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// UpdateResumeKey stores the object key of the uploaded resume.
func (r *StudentRepository) UpdateResumeKey(ctx context.Context, admissionNumber, key string) error {
	return r.updateKey(ctx, "resume_key", admissionNumber, key)
}

// UpdatePhotoKey stores the object key of the uploaded photo.
func (r *StudentRepository) UpdatePhotoKey(ctx context.Context, admissionNumber, key string) error {
	return r.updateKey(ctx, "photo_key", admissionNumber, key)
}

func (r *StudentRepository) updateKey(ctx context.Context, column, admissionNumber, key string) error {
	query := fmt.Sprintf("UPDATE students SET %s = $2, updated_at = $3 WHERE admission_number = $1", column)
	res, err := r.db.ExecContext(ctx, query, admissionNumber, key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student %s: %w", column, err)
	}
	return expectAffected(res, "update student "+column)
}

// Delete removes a student row. Participations are kept.
func (r *StudentRepository) Delete(ctx context.Context, admissionNumber string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE admission_number = $1", admissionNumber)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res, "delete student")
}
