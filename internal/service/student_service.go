package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/imaging"
	"github.com/placement-sarthi/placement-api/pkg/storage"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*models.Student, error)
	Exists(ctx context.Context, admissionNumber string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateResumeKey(ctx context.Context, admissionNumber, key string) error
	UpdatePhotoKey(ctx context.Context, admissionNumber, key string) error
	Delete(ctx context.Context, admissionNumber string) error
}

type accountProvisioner interface {
	Provision(ctx context.Context, req ProvisionAccountRequest) (*models.User, error)
	Deprovision(ctx context.Context, role models.UserRole, referenceID string) error
}

var resumeContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// StudentServiceConfig tunes account provisioning and uploads.
type StudentServiceConfig struct {
	// DefaultPassword is used when a student is created without one. Empty
	// means a password is mandatory.
	DefaultPassword string
	MaxUploadBytes  int64
	PhotoSize       int
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	AdmissionNumber   string     `json:"admissionNumber" validate:"required,max=32"`
	FirstName         string     `json:"firstName" validate:"required,max=100"`
	LastName          string     `json:"lastName" validate:"max=100"`
	FatherName        *string    `json:"fatherName"`
	MotherName        *string    `json:"motherName"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	Gender            *string    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Mobile            *string    `json:"mobile" validate:"omitempty,max=20"`
	Email             string     `json:"email" validate:"required,email"`
	CollegeEmail      *string    `json:"collegeEmail" validate:"omitempty,email"`
	Department        string     `json:"department" validate:"required,max=100"`
	Batch             string     `json:"batch" validate:"required,max=20"`
	Course            *string    `json:"course" validate:"omitempty,max=100"`
	CGPA              *float64   `json:"cgpa" validate:"omitempty,min=0,max=10"`
	TenthPercentage   *float64   `json:"tenthPercentage" validate:"omitempty,min=0,max=100"`
	TwelfthPercentage *float64   `json:"twelfthPercentage" validate:"omitempty,min=0,max=100"`
	BacklogCount      int        `json:"backlogCount" validate:"min=0"`
	Address           *string    `json:"address"`
	UniversityRollNo  *string    `json:"universityRollNo"`
	EnrollmentNo      *string    `json:"enrollmentNo"`
	Password          string     `json:"password" validate:"omitempty,min=6"`
}

// UpdateStudentRequest holds a partial profile update. The admission number
// and login email are not editable here.
type UpdateStudentRequest struct {
	FirstName         *string    `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName          *string    `json:"lastName" validate:"omitempty,max=100"`
	FatherName        *string    `json:"fatherName"`
	MotherName        *string    `json:"motherName"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	Gender            *string    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Mobile            *string    `json:"mobile" validate:"omitempty,max=20"`
	CollegeEmail      *string    `json:"collegeEmail" validate:"omitempty,email"`
	Department        *string    `json:"department" validate:"omitempty,min=1,max=100"`
	Batch             *string    `json:"batch" validate:"omitempty,min=1,max=20"`
	Course            *string    `json:"course" validate:"omitempty,max=100"`
	CGPA              *float64   `json:"cgpa" validate:"omitempty,min=0,max=10"`
	TenthPercentage   *float64   `json:"tenthPercentage" validate:"omitempty,min=0,max=100"`
	TwelfthPercentage *float64   `json:"twelfthPercentage" validate:"omitempty,min=0,max=100"`
	BacklogCount      *int       `json:"backlogCount" validate:"omitempty,min=0"`
	Address           *string    `json:"address"`
	UniversityRollNo  *string    `json:"universityRollNo"`
	EnrollmentNo      *string    `json:"enrollmentNo"`
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StudentService handles the student directory.
type StudentService struct {
	repo      studentRepository
	accounts  accountProvisioner
	store     storage.ObjectStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentServiceConfig
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, accounts accountProvisioner, store storage.ObjectStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	if cfg.PhotoSize <= 0 {
		cfg.PhotoSize = imaging.DefaultPhotoSize
	}
	return &StudentService{
		repo:      repo,
		accounts:  accounts,
		store:     store,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	for i := range students {
		s.attachLinks(ctx, &students[i])
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student profile with resolved document links.
func (s *StudentService) Get(ctx context.Context, admissionNumber string) (*models.Student, error) {
	student, err := s.load(ctx, admissionNumber)
	if err != nil {
		return nil, err
	}
	s.attachLinks(ctx, student)
	return student, nil
}

// Create registers a student and provisions the matching STUDENT login.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	password := req.Password
	if password == "" {
		password = s.cfg.DefaultPassword
	}
	if password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is required")
	}

	admissionNumber := strings.TrimSpace(req.AdmissionNumber)
	exists, err := s.repo.Exists(ctx, admissionNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already exists")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	student := &models.Student{
		AdmissionNumber:   admissionNumber,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		FatherName:        req.FatherName,
		MotherName:        req.MotherName,
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Mobile:            req.Mobile,
		Email:             &email,
		CollegeEmail:      req.CollegeEmail,
		Department:        strings.TrimSpace(req.Department),
		Batch:             strings.TrimSpace(req.Batch),
		Course:            req.Course,
		CGPA:              req.CGPA,
		TenthPercentage:   req.TenthPercentage,
		TwelfthPercentage: req.TwelfthPercentage,
		BacklogCount:      req.BacklogCount,
		Address:           req.Address,
		UniversityRollNo:  req.UniversityRollNo,
		EnrollmentNo:      req.EnrollmentNo,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateStudent) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if _, err := s.accounts.Provision(ctx, ProvisionAccountRequest{
		Email:       email,
		FullName:    student.FullName(),
		Role:        models.RoleStudent,
		ReferenceID: admissionNumber,
		Password:    password,
	}); err != nil {
		if delErr := s.repo.Delete(ctx, admissionNumber); delErr != nil {
			s.logger.Error("failed to roll back student after account error", zap.String("admission_number", admissionNumber), zap.Error(delErr))
		}
		return nil, err
	}
	s.logger.Info("student created", zap.String("admission_number", admissionNumber))
	return student, nil
}

// Update applies a partial profile update.
func (s *StudentService) Update(ctx context.Context, admissionNumber string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.load(ctx, admissionNumber)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		student.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.FatherName != nil {
		student.FatherName = req.FatherName
	}
	if req.MotherName != nil {
		student.MotherName = req.MotherName
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		student.Gender = req.Gender
	}
	if req.Mobile != nil {
		student.Mobile = req.Mobile
	}
	if req.CollegeEmail != nil {
		student.CollegeEmail = req.CollegeEmail
	}
	if req.Department != nil {
		student.Department = strings.TrimSpace(*req.Department)
	}
	if req.Batch != nil {
		student.Batch = strings.TrimSpace(*req.Batch)
	}
	if req.Course != nil {
		student.Course = req.Course
	}
	if req.CGPA != nil {
		student.CGPA = req.CGPA
	}
	if req.TenthPercentage != nil {
		student.TenthPercentage = req.TenthPercentage
	}
	if req.TwelfthPercentage != nil {
		student.TwelfthPercentage = req.TwelfthPercentage
	}
	if req.BacklogCount != nil {
		student.BacklogCount = *req.BacklogCount
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.UniversityRollNo != nil {
		student.UniversityRollNo = req.UniversityRollNo
	}
	if req.EnrollmentNo != nil {
		student.EnrollmentNo = req.EnrollmentNo
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to update student")
	}
	s.cache.InvalidateStudent(ctx, admissionNumber)
	s.cache.InvalidateAllRosters(ctx)
	s.attachLinks(ctx, student)
	return student, nil
}

// Delete removes the student and its login. Participations stay for history.
func (s *StudentService) Delete(ctx context.Context, admissionNumber string) error {
	student, err := s.load(ctx, admissionNumber)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, admissionNumber); err != nil {
		return notFoundOrInternal(err, "student not found", "failed to delete student")
	}
	if err := s.accounts.Deprovision(ctx, models.RoleStudent, admissionNumber); err != nil {
		s.logger.Warn("failed to remove student account", zap.String("admission_number", admissionNumber), zap.Error(err))
	}
	for _, key := range []*string{student.ResumeKey, student.PhotoKey} {
		s.removeObject(ctx, key)
	}
	s.cache.InvalidateStudent(ctx, admissionNumber)
	s.cache.InvalidateAllRosters(ctx)
	s.logger.Info("student deleted", zap.String("admission_number", admissionNumber))
	return nil
}

// UploadResume stores a PDF or Word resume and replaces the previous one.
func (s *StudentService) UploadResume(ctx context.Context, admissionNumber string, file Upload) (*models.Student, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(file.ContentType, ";", 2)[0]))
	if !resumeContentTypes[contentType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resume must be a PDF or Word document")
	}
	student, err := s.load(ctx, admissionNumber)
	if err != nil {
		return nil, err
	}
	data, err := s.readUpload(file)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey("resumes", admissionNumber, file.Filename, s.now())
	if _, err := s.store.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store resume")
	}
	if err := s.repo.UpdateResumeKey(ctx, admissionNumber, key); err != nil {
		s.removeObject(ctx, &key)
		return nil, notFoundOrInternal(err, "student not found", "failed to save resume")
	}
	s.removeObject(ctx, student.ResumeKey)
	student.ResumeKey = &key
	s.cache.InvalidateAllRosters(ctx)
	s.attachLinks(ctx, student)
	return student, nil
}

// UploadPhoto normalises the image to a bounded JPEG and replaces the previous photo.
func (s *StudentService) UploadPhoto(ctx context.Context, admissionNumber string, file Upload) (*models.Student, error) {
	student, err := s.load(ctx, admissionNumber)
	if err != nil {
		return nil, err
	}
	data, err := s.readUpload(file)
	if err != nil {
		return nil, err
	}
	photo, err := imaging.NormalizePhoto(bytes.NewReader(data), s.cfg.PhotoSize)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "photo must be an image")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process photo")
	}

	name := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)) + ".jpg"
	key := storage.ObjectKey("photos", admissionNumber, name, s.now())
	if _, err := s.store.Put(ctx, key, bytes.NewReader(photo), "image/jpeg"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}
	if err := s.repo.UpdatePhotoKey(ctx, admissionNumber, key); err != nil {
		s.removeObject(ctx, &key)
		return nil, notFoundOrInternal(err, "student not found", "failed to save photo")
	}
	s.removeObject(ctx, student.PhotoKey)
	student.PhotoKey = &key
	s.attachLinks(ctx, student)
	return student, nil
}

func (s *StudentService) load(ctx context.Context, admissionNumber string) (*models.Student, error) {
	student, err := s.repo.FindByAdmissionNumber(ctx, admissionNumber)
	if err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	return student, nil
}

func (s *StudentService) readUpload(file Upload) ([]byte, error) {
	if file.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds upload limit")
	}
	data, err := io.ReadAll(io.LimitReader(file.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds upload limit")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	return data, nil
}

func (s *StudentService) attachLinks(ctx context.Context, student *models.Student) {
	if s.store == nil {
		return
	}
	if student.ResumeKey != nil && *student.ResumeKey != "" {
		if link, err := s.store.URL(ctx, *student.ResumeKey); err == nil {
			student.ResumeLink = link
		} else {
			s.logger.Warn("failed to resolve resume link", zap.String("admission_number", student.AdmissionNumber), zap.Error(err))
		}
	}
	if student.PhotoKey != nil && *student.PhotoKey != "" {
		if link, err := s.store.URL(ctx, *student.PhotoKey); err == nil {
			student.PhotoLink = link
		} else {
			s.logger.Warn("failed to resolve photo link", zap.String("admission_number", student.AdmissionNumber), zap.Error(err))
		}
	}
}

func (s *StudentService) removeObject(ctx context.Context, key *string) {
	if key == nil || *key == "" || s.store == nil {
		return
	}
	if err := s.store.Remove(ctx, *key); err != nil {
		s.logger.Warn("failed to remove stored object", zap.String("key", *key), zap.Error(err))
	}
}
