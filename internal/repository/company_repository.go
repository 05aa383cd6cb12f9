package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/placement-sarthi/placement-api/internal/models"
)

const companyColumns = "company_id, company_name, hr_name, hr_email, hr_phone, photo_link, created_at, updated_at"

// CompanyRepository persists recruiter companies.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs a CompanyRepository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// List returns companies ordered by the requested column.
func (r *CompanyRepository) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where += " AND (LOWER(company_name) LIKE $1 OR LOWER(hr_name) LIKE $1 OR LOWER(hr_email) LIKE $1)"
	}

	allowedSorts := map[string]bool{"company_name": true, "created_at": true}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "company_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s FROM companies %s ORDER BY %s %s LIMIT %d OFFSET %d", companyColumns, where, sortBy, order, size, (page-1)*size)
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM companies "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}
	return companies, total, nil
}

// FindByID fetches a company by id.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.GetContext(ctx, &company, "SELECT "+companyColumns+" FROM companies WHERE company_id = $1", id); err != nil {
		return nil, err
	}
	return &company, nil
}

// Create inserts a company. Names are unique case-insensitively.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	const query = `INSERT INTO companies (company_id, company_name, hr_name, hr_email, hr_phone, photo_link, created_at, updated_at)
        VALUES (:company_id, :company_name, :hr_name, :hr_email, :hr_phone, :photo_link, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCompany
		}
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// Update overwrites the company profile.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE companies SET company_name = :company_name, hr_name = :hr_name, hr_email = :hr_email,
        hr_phone = :hr_phone, photo_link = :photo_link, updated_at = :updated_at WHERE company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, company)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCompany
		}
		return fmt.Errorf("update company: %w", err)
	}
	return expectAffected(res, "update company")
}

// Delete removes a company. Its events are kept.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM companies WHERE company_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return expectAffected(res, "delete company")
}
