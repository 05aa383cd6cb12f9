package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

type companyRepository interface {
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error)
	FindByID(ctx context.Context, id string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id string) error
}

// CreateCompanyRequest holds payload for registering a recruiter.
type CreateCompanyRequest struct {
	CompanyName string  `json:"companyName" validate:"required,max=255"`
	HRName      string  `json:"hrName" validate:"required,max=255"`
	HREmail     string  `json:"hrEmail" validate:"required,email"`
	HRPhone     *string `json:"hrPhone" validate:"omitempty,max=20"`
	PhotoLink   *string `json:"photoLink" validate:"omitempty,url"`
	Password    string  `json:"password" validate:"omitempty,min=6"`
}

// UpdateCompanyRequest holds a partial company update.
type UpdateCompanyRequest struct {
	CompanyName *string `json:"companyName" validate:"omitempty,min=1,max=255"`
	HRName      *string `json:"hrName" validate:"omitempty,min=1,max=255"`
	HRPhone     *string `json:"hrPhone" validate:"omitempty,max=20"`
	PhotoLink   *string `json:"photoLink" validate:"omitempty,url"`
}

// CompanyService manages recruiter companies and their COMPANY logins.
type CompanyService struct {
	repo            companyRepository
	accounts        accountProvisioner
	validator       *validator.Validate
	logger          *zap.Logger
	defaultPassword string
}

// NewCompanyService constructs the company service.
func NewCompanyService(repo companyRepository, accounts accountProvisioner, validate *validator.Validate, logger *zap.Logger, defaultPassword string) *CompanyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{repo: repo, accounts: accounts, validator: validate, logger: logger, defaultPassword: defaultPassword}
}

// List returns companies and pagination metadata.
func (s *CompanyService) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, *models.Pagination, error) {
	companies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list companies")
	}
	return companies, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one company.
func (s *CompanyService) Get(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "company not found", "failed to load company")
	}
	return company, nil
}

// Create stores the company and provisions a login for its HR contact.
func (s *CompanyService) Create(ctx context.Context, req CreateCompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}
	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	if password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is required")
	}

	company := &models.Company{
		Name:      strings.TrimSpace(req.CompanyName),
		HRName:    strings.TrimSpace(req.HRName),
		HREmail:   strings.ToLower(strings.TrimSpace(req.HREmail)),
		HRPhone:   req.HRPhone,
		PhotoLink: req.PhotoLink,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		if errors.Is(err, repository.ErrDuplicateCompany) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "company name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create company")
	}

	if _, err := s.accounts.Provision(ctx, ProvisionAccountRequest{
		Email:       company.HREmail,
		FullName:    company.HRName,
		Role:        models.RoleCompany,
		ReferenceID: company.ID,
		Password:    password,
	}); err != nil {
		if delErr := s.repo.Delete(ctx, company.ID); delErr != nil {
			s.logger.Error("failed to roll back company after account error", zap.String("company_id", company.ID), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("company created", zap.String("company_id", company.ID), zap.String("name", company.Name))
	return company, nil
}

// Update applies a partial update. Company accounts may only edit themselves.
func (s *CompanyService) Update(ctx context.Context, id string, req UpdateCompanyRequest, actor Actor) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}
	if actor.Role == models.RoleCompany && !actor.Owns(id) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot modify another company")
	}
	company, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CompanyName != nil {
		company.Name = strings.TrimSpace(*req.CompanyName)
	}
	if req.HRName != nil {
		company.HRName = strings.TrimSpace(*req.HRName)
	}
	if req.HRPhone != nil {
		company.HRPhone = req.HRPhone
	}
	if req.PhotoLink != nil {
		company.PhotoLink = req.PhotoLink
	}
	if err := s.repo.Update(ctx, company); err != nil {
		if errors.Is(err, repository.ErrDuplicateCompany) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "company name already exists")
		}
		return nil, notFoundOrInternal(err, "company not found", "failed to update company")
	}
	return company, nil
}

// Delete removes the company and its login. Events it organised stay listed.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "company not found", "failed to delete company")
	}
	if err := s.accounts.Deprovision(ctx, models.RoleCompany, id); err != nil {
		s.logger.Warn("failed to remove company account", zap.String("company_id", id), zap.Error(err))
	}
	return nil
}
