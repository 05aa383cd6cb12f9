// Package seed loads YAML fixtures into a fresh placement database.
//
// Every record goes through the regular services so passwords are hashed and
// logins provisioned. Records that already exist are skipped, which makes
// repeated runs safe.
package seed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

// Fixture is the seed file layout.
type Fixture struct {
	Admins    []Admin   `yaml:"admins"`
	Companies []Company `yaml:"companies"`
	Students  []Student `yaml:"students"`
	Events    []Event   `yaml:"events"`
}

// Admin is an ADMIN login.
type Admin struct {
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
}

// Company is a recruiter with its HR login.
type Company struct {
	Name     string `yaml:"name"`
	HRName   string `yaml:"hr_name"`
	HREmail  string `yaml:"hr_email"`
	HRPhone  string `yaml:"hr_phone"`
	Password string `yaml:"password"`
}

// Student is a directory entry with its STUDENT login.
type Student struct {
	AdmissionNumber string   `yaml:"admission_number"`
	FirstName       string   `yaml:"first_name"`
	LastName        string   `yaml:"last_name"`
	Email           string   `yaml:"email"`
	Department      string   `yaml:"department"`
	Batch           string   `yaml:"batch"`
	CGPA            *float64 `yaml:"cgpa"`
	Password        string   `yaml:"password"`
}

// Event is a recruitment drive. Company names a seeded company.
type Event struct {
	ID                  string    `yaml:"id"`
	Name                string    `yaml:"name"`
	Company             string    `yaml:"company"`
	JobRole             string    `yaml:"job_role"`
	RegistrationStart   time.Time `yaml:"registration_start"`
	RegistrationEnd     time.Time `yaml:"registration_end"`
	Mode                string    `yaml:"mode"`
	Description         string    `yaml:"description"`
	EligibleDepartments []string  `yaml:"eligible_departments"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes fixture YAML.
func Parse(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &fx, nil
}

type accountCreator interface {
	Provision(ctx context.Context, req service.ProvisionAccountRequest) (*models.User, error)
}

type companyCreator interface {
	Create(ctx context.Context, req service.CreateCompanyRequest) (*models.Company, error)
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, *models.Pagination, error)
}

type studentCreator interface {
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error)
}

type eventCreator interface {
	Create(ctx context.Context, req service.CreateEventRequest, actor service.Actor) (*models.Event, error)
}

// Seeder applies fixtures through the domain services.
type Seeder struct {
	Accounts  accountCreator
	Companies companyCreator
	Students  studentCreator
	Events    eventCreator
	Logger    *zap.Logger
}

// Summary counts created and skipped records.
type Summary struct {
	Created int
	Skipped int
}

// Apply creates every fixture record, skipping ones that already exist.
func (s *Seeder) Apply(ctx context.Context, fx *Fixture) (Summary, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var sum Summary
	track := func(kind, key string, err error) error {
		switch {
		case err == nil:
			sum.Created++
			logger.Info("seeded", zap.String("kind", kind), zap.String("key", key))
			return nil
		case isConflict(err):
			sum.Skipped++
			logger.Debug("seed record exists", zap.String("kind", kind), zap.String("key", key))
			return nil
		default:
			return fmt.Errorf("seed %s %s: %w", kind, key, err)
		}
	}

	for _, a := range fx.Admins {
		_, err := s.Accounts.Provision(ctx, service.ProvisionAccountRequest{
			Email:    a.Email,
			FullName: a.FullName,
			Role:     models.RoleAdmin,
			Password: a.Password,
		})
		if err := track("admin", a.Email, err); err != nil {
			return sum, err
		}
	}

	companyIDs := make(map[string]string, len(fx.Companies))
	for _, c := range fx.Companies {
		req := service.CreateCompanyRequest{CompanyName: c.Name, HRName: c.HRName, HREmail: c.HREmail, Password: c.Password}
		if c.HRPhone != "" {
			phone := c.HRPhone
			req.HRPhone = &phone
		}
		created, err := s.Companies.Create(ctx, req)
		if err == nil {
			companyIDs[strings.ToLower(c.Name)] = created.ID
		}
		if err := track("company", c.Name, err); err != nil {
			return sum, err
		}
	}

	for _, st := range fx.Students {
		_, err := s.Students.Create(ctx, service.CreateStudentRequest{
			AdmissionNumber: st.AdmissionNumber,
			FirstName:       st.FirstName,
			LastName:        st.LastName,
			Email:           st.Email,
			Department:      st.Department,
			Batch:           st.Batch,
			CGPA:            st.CGPA,
			Password:        st.Password,
		})
		if err := track("student", st.AdmissionNumber, err); err != nil {
			return sum, err
		}
	}

	admin := service.Actor{Role: models.RoleAdmin}
	for _, ev := range fx.Events {
		req := service.CreateEventRequest{
			EventID:             ev.ID,
			EventName:           ev.Name,
			OrganizingCompany:   ev.Company,
			RegistrationStart:   ev.RegistrationStart,
			RegistrationEnd:     ev.RegistrationEnd,
			EventMode:           models.EventMode(strings.ToUpper(ev.Mode)),
			Description:         ev.Description,
			EligibleDepartments: ev.EligibleDepartments,
		}
		if ev.JobRole != "" {
			role := ev.JobRole
			req.JobRole = &role
		}
		if id, err := s.companyID(ctx, companyIDs, ev.Company); err != nil {
			return sum, err
		} else if id != "" {
			req.CompanyID = &id
		}
		_, err := s.Events.Create(ctx, req, admin)
		if err := track("event", ev.Name, err); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// companyID resolves a company name to its id, looking up companies created
// by an earlier run.
func (s *Seeder) companyID(ctx context.Context, known map[string]string, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", nil
	}
	if id, ok := known[key]; ok {
		return id, nil
	}
	companies, _, err := s.Companies.List(ctx, models.CompanyFilter{Search: name, PageSize: 100})
	if err != nil {
		return "", fmt.Errorf("look up company %s: %w", name, err)
	}
	for _, c := range companies {
		if strings.EqualFold(c.Name, name) {
			known[key] = c.ID
			return c.ID, nil
		}
	}
	return "", nil
}

func isConflict(err error) bool {
	e := appErrors.FromError(err)
	return e != nil && e.Status == http.StatusConflict
}
