package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

// MaxImportRows bounds a single bulk upload.
const MaxImportRows = 2000

// StudentImportColumns is the header row expected by ImportCSV and ImportXLSX.
var StudentImportColumns = []string{
	"admissionNumber", "firstName", "lastName", "fatherName", "motherName",
	"dateOfBirth", "gender", "mobile", "email", "collegeEmail",
	"department", "batch", "course", "cgpa", "tenthPercentage",
	"twelfthPercentage", "backlogCount", "address", "universityRollNo",
	"enrollmentNo", "password",
}

// StudentImportError describes one rejected row. Row is 1-based and counts
// the header.
type StudentImportError struct {
	Row             int    `json:"row"`
	AdmissionNumber string `json:"admissionNumber,omitempty"`
	Message         string `json:"message"`
}

// StudentImportResult summarises a bulk upload.
type StudentImportResult struct {
	Total   int                  `json:"total"`
	Created int                  `json:"created"`
	Skipped int                  `json:"skipped"`
	Errors  []StudentImportError `json:"errors"`
}

// ImportTemplate returns an empty upload file with the expected header row as
// CSV or, when format is "xlsx", as a workbook.
func (s *StudentService) ImportTemplate(format string) (*ExportFile, error) {
	dataset := export.Dataset{Headers: StudentImportColumns}
	if strings.EqualFold(strings.TrimSpace(format), "xlsx") {
		raw, err := export.NewXLSXExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
		}
		return &ExportFile{Name: "students-template.xlsx", ContentType: export.XLSXContentType, Data: raw}, nil
	}
	raw, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
	}
	return &ExportFile{Name: "students-template.csv", ContentType: "text/csv", Data: raw}, nil
}

type importRowReader interface {
	Read() ([]string, error)
}

// ImportCSV creates one student per data row. Rows for admission numbers that
// already exist are skipped; invalid rows are reported and do not stop the run.
func (s *StudentService) ImportCSV(ctx context.Context, body io.Reader) (*StudentImportResult, error) {
	reader := csv.NewReader(body)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return s.importRows(ctx, reader, "invalid csv file")
}

// ImportXLSX imports the first sheet of a workbook the same way as ImportCSV.
func (s *StudentService) ImportXLSX(ctx context.Context, body io.Reader) (*StudentImportResult, error) {
	reader, err := export.NewXLSXReader(body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid xlsx file")
	}
	defer reader.Close() //nolint:errcheck
	return s.importRows(ctx, reader, "invalid xlsx file")
}

func (s *StudentService) importRows(ctx context.Context, reader importRowReader, invalidFile string) (*StudentImportResult, error) {
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, invalidFile)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"admissionnumber", "firstname", "email", "department", "batch"} {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing column %s", required))
		}
	}

	result := &StudentImportResult{Errors: []StudentImportError{}}
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, StudentImportError{Row: row, Message: err.Error()})
			continue
		}
		if blankRecord(record) {
			continue
		}
		result.Total++
		if result.Total > MaxImportRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d rows", MaxImportRows))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		field := func(name string) string {
			i, ok := index[strings.ToLower(name)]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		admissionNumber := field("admissionNumber")
		req, err := importRequest(field)
		if err != nil {
			result.Errors = append(result.Errors, StudentImportError{Row: row, AdmissionNumber: admissionNumber, Message: err.Error()})
			continue
		}
		exists, err := s.repo.Exists(ctx, admissionNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
		}
		if exists {
			result.Skipped++
			continue
		}
		if _, err := s.Create(ctx, req); err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Status >= 500 {
				return nil, err
			}
			result.Errors = append(result.Errors, StudentImportError{Row: row, AdmissionNumber: admissionNumber, Message: appErr.Message})
			continue
		}
		result.Created++
	}

	s.logger.Info("student import finished",
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func importRequest(field func(string) string) (CreateStudentRequest, error) {
	req := CreateStudentRequest{
		AdmissionNumber:  field("admissionNumber"),
		FirstName:        field("firstName"),
		LastName:         field("lastName"),
		FatherName:       optional(field("fatherName")),
		MotherName:       optional(field("motherName")),
		Mobile:           optional(field("mobile")),
		Email:            field("email"),
		CollegeEmail:     optional(field("collegeEmail")),
		Department:       field("department"),
		Batch:            field("batch"),
		Course:           optional(field("course")),
		Address:          optional(field("address")),
		UniversityRollNo: optional(field("universityRollNo")),
		EnrollmentNo:     optional(field("enrollmentNo")),
		Password:         field("password"),
	}
	if req.AdmissionNumber == "" {
		return req, errors.New("admission number is required")
	}
	if raw := field("dateOfBirth"); raw != "" {
		dob, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return req, errors.New("dateOfBirth must be YYYY-MM-DD")
		}
		req.DateOfBirth = &dob
	}
	if raw := field("gender"); raw != "" {
		gender, ok := normalizeGender(raw)
		if !ok {
			return req, errors.New("gender must be MALE, FEMALE or OTHER")
		}
		req.Gender = &gender
	}
	var err error
	if req.CGPA, err = optionalFloat(field("cgpa"), "cgpa"); err != nil {
		return req, err
	}
	if req.TenthPercentage, err = optionalFloat(field("tenthPercentage"), "tenthPercentage"); err != nil {
		return req, err
	}
	if req.TwelfthPercentage, err = optionalFloat(field("twelfthPercentage"), "twelfthPercentage"); err != nil {
		return req, err
	}
	if raw := field("backlogCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("backlogCount must be a whole number")
		}
		req.BacklogCount = n
	}
	return req, nil
}

func normalizeGender(raw string) (string, bool) {
	switch strings.ToUpper(raw) {
	case "M", "MALE":
		return "MALE", true
	case "F", "FEMALE":
		return "FEMALE", true
	case "O", "OTHER", "OTHERS":
		return "OTHER", true
	}
	return "", false
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func optionalFloat(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
