package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/pkg/export"
)

func TestStudentServiceImportCSV(t *testing.T) {
	f := newStudentServiceFixture(t, StudentServiceConfig{DefaultPassword: "welcome1"},
		models.Student{AdmissionNumber: "22CSE001", FirstName: "Asha", Department: "CSE", Batch: "2022"},
	)
	body := strings.Join([]string{
		"\ufeffadmissionNumber,firstName,lastName,email,department,batch,gender,cgpa,backlogCount,dateOfBirth",
		"22CSE001,Asha,Rao,asha@example.com,CSE,2022,Female,8.4,0,2004-02-11",
		"22CSE002,Ravi,Kumar,ravi@example.com,CSE,2022,m,7.9,1,",
		",,,,,,,,,",
		"22CSE003,Meera,,meera@example.com,ECE,2022,unknown,,,",
		"22CSE004,Kiran,,kiran@example.com,ECE,2022,,nine,,",
		"22CSE005,Dev,,not-an-email,ECE,2022,,,,",
		",Nobody,,nobody@example.com,ECE,2022,,,,",
	}, "\n")

	result, err := f.svc.ImportCSV(context.Background(), strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 6, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, StudentImportError{Row: 5, AdmissionNumber: "22CSE003", Message: "gender must be MALE, FEMALE or OTHER"}, result.Errors[0])
	assert.Equal(t, "cgpa must be a number", result.Errors[1].Message)
	assert.Equal(t, "invalid student payload", result.Errors[2].Message)
	assert.Equal(t, "admission number is required", result.Errors[3].Message)

	created := f.repo.students["22CSE002"]
	require.NotNil(t, created.Gender)
	assert.Equal(t, "MALE", *created.Gender)
	assert.Equal(t, 1, created.BacklogCount)
	_, err = f.users.FindByReference(context.Background(), models.RoleStudent, "22CSE002")
	require.NoError(t, err)
}

func TestStudentServiceImportCSVRejectsBadFiles(t *testing.T) {
	f := newStudentServiceFixture(t, StudentServiceConfig{DefaultPassword: "welcome1"})

	_, err := f.svc.ImportCSV(context.Background(), strings.NewReader(""))
	assertAppError(t, err, 400, "file is empty")

	_, err = f.svc.ImportCSV(context.Background(), strings.NewReader("admissionNumber,firstName,email,department\n1,a,b,c\n"))
	assertAppError(t, err, 400, "missing column batch")
}

func TestStudentServiceImportTemplate(t *testing.T) {
	f := newStudentServiceFixture(t, StudentServiceConfig{})

	file, err := f.svc.ImportTemplate("")
	require.NoError(t, err)
	assert.Equal(t, "students-template.csv", file.Name)
	assert.Equal(t, strings.Join(StudentImportColumns, ",")+"\n", string(file.Data))

	file, err = f.svc.ImportTemplate("XLSX")
	require.NoError(t, err)
	assert.Equal(t, "students-template.xlsx", file.Name)
	assert.Equal(t, export.XLSXContentType, file.ContentType)

	reader, err := export.NewXLSXReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer reader.Close() //nolint:errcheck
	header, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, StudentImportColumns, header)
}

func TestStudentServiceImportXLSX(t *testing.T) {
	f := newStudentServiceFixture(t, StudentServiceConfig{DefaultPassword: "welcome1"},
		models.Student{AdmissionNumber: "22CSE001", FirstName: "Asha", Department: "CSE", Batch: "2022"},
	)
	headers := []string{"AdmissionNumber", "FirstName", "Email", "Department", "Batch", "Gender", "CGPA"}
	workbook, err := export.NewXLSXExporter().Render(export.Dataset{
		Headers: headers,
		Rows: []map[string]string{
			{"AdmissionNumber": "22CSE001", "FirstName": "Asha", "Email": "asha@example.com", "Department": "CSE", "Batch": "2022"},
			{"AdmissionNumber": "22ECE010", "FirstName": "Nila", "Email": "nila@example.com", "Department": "ECE", "Batch": "2022", "Gender": "F", "CGPA": "9.1"},
			{"AdmissionNumber": "22ECE011", "FirstName": "Arun", "Email": "arun@example.com", "Department": "ECE", "Batch": "2022", "CGPA": "high"},
		},
	})
	require.NoError(t, err)

	result, err := f.svc.ImportXLSX(context.Background(), bytes.NewReader(workbook))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, StudentImportError{Row: 4, AdmissionNumber: "22ECE011", Message: "cgpa must be a number"}, result.Errors[0])

	created := f.repo.students["22ECE010"]
	require.NotNil(t, created.CGPA)
	assert.Equal(t, 9.1, *created.CGPA)
	require.NotNil(t, created.Gender)
	assert.Equal(t, "FEMALE", *created.Gender)

	_, err = f.svc.ImportXLSX(context.Background(), strings.NewReader("admissionNumber,firstName"))
	assertAppError(t, err, 400, "invalid xlsx file")
}
