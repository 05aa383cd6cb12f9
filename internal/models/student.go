package models

import (
	"strings"
	"time"
)

// Gender values accepted on student profiles.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// Student is a placement candidate keyed by admission number.
type Student struct {
	AdmissionNumber   string     `db:"admission_number" json:"admissionNumber"`
	FirstName         string     `db:"first_name" json:"firstName"`
	LastName          string     `db:"last_name" json:"lastName"`
	FatherName        *string    `db:"father_name" json:"fatherName,omitempty"`
	MotherName        *string    `db:"mother_name" json:"motherName,omitempty"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Mobile            *string    `db:"mobile" json:"mobile,omitempty"`
	Email             *string    `db:"email" json:"email,omitempty"`
	CollegeEmail      *string    `db:"college_email" json:"collegeEmail,omitempty"`
	Department        string     `db:"department" json:"department"`
	Batch             string     `db:"batch" json:"batch"`
	Course            *string    `db:"course" json:"course,omitempty"`
	CGPA              *float64   `db:"cgpa" json:"cgpa,omitempty"`
	TenthPercentage   *float64   `db:"tenth_percentage" json:"tenthPercentage,omitempty"`
	TwelfthPercentage *float64   `db:"twelfth_percentage" json:"twelfthPercentage,omitempty"`
	BacklogCount      int        `db:"backlog_count" json:"backlogCount"`
	Address           *string    `db:"address" json:"address,omitempty"`
	UniversityRollNo  *string    `db:"university_roll_no" json:"universityRollNo,omitempty"`
	EnrollmentNo      *string    `db:"enrollment_no" json:"enrollmentNo,omitempty"`
	ResumeKey         *string    `db:"resume_key" json:"-"`
	PhotoKey          *string    `db:"photo_key" json:"-"`
	ResumeLink        string     `db:"-" json:"resumeLink,omitempty"`
	PhotoLink         string     `db:"-" json:"photoLink,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	Department  string
	Batch       string
	Course      string
	MinCGPA     *float64
	MaxBacklogs *int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
