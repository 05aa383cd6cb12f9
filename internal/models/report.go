package models

import "time"

// Placeholder values for participations whose event has been deleted.
const (
	RemovedEventName    = "Event Removed"
	RemovedEventCompany = "Unknown"
	RemovedEventRole    = "N/A"
)

// StudentReport is the full event history of one student.
type StudentReport struct {
	Student Student              `json:"student"`
	Summary StudentReportSummary `json:"summary"`
	Events  []StudentReportEvent `json:"events"`
}

// StudentReportSummary counts participations by status. TotalRegistered is the
// number of participations; TotalPending counts those still REGISTERED.
type StudentReportSummary struct {
	TotalRegistered int `json:"totalRegistered"`
	TotalSelected   int `json:"totalSelected"`
	TotalRejected   int `json:"totalRejected"`
	TotalAttempted  int `json:"totalAttempted"`
	TotalAbsent     int `json:"totalAbsent"`
	TotalCompleted  int `json:"totalCompleted"`
	TotalPending    int `json:"totalPending"`
}

// StudentReportEvent is one row of a student report.
type StudentReportEvent struct {
	EventID           string              `json:"eventId"`
	EventName         string              `json:"eventName"`
	OrganizingCompany string              `json:"organizingCompany"`
	JobRole           string              `json:"jobRole"`
	RegistrationStart *time.Time          `json:"registrationStart,omitempty"`
	RegistrationEnd   *time.Time          `json:"registrationEnd,omitempty"`
	ExpectedCGPA      *float64            `json:"expectedCgpa,omitempty"`
	ExpectedPackage   *float64            `json:"expectedPackage,omitempty"`
	EventMode         string              `json:"eventMode"`
	EventRemoved      bool                `json:"eventRemoved"`
	Status            ParticipationStatus `json:"status"`
	Stage             Stage               `json:"stage"`
	StageMetadata     StageDetails        `json:"stageMetadata"`
	Description       string              `json:"description"`
	RegisteredAt      time.Time           `json:"registeredAt"`
}

// ParticipationWithEvent is a participation left-joined with its live event.
// Event columns are nil when the event no longer exists.
type ParticipationWithEvent struct {
	Participation
	LiveEventName         *string    `db:"live_event_name"`
	LiveOrganizingCompany *string    `db:"live_organizing_company"`
	LiveJobRole           *string    `db:"live_job_role"`
	LiveRegistrationStart *time.Time `db:"live_registration_start"`
	LiveRegistrationEnd   *time.Time `db:"live_registration_end"`
	LiveExpectedCGPA      *float64   `db:"live_expected_cgpa"`
	LiveExpectedPackage   *float64   `db:"live_expected_package"`
	LiveEventMode         *string    `db:"live_event_mode"`
}

// RosterRecord is a participation left-joined with the live student row.
// Student columns are nil when the student has been deleted.
type RosterRecord struct {
	Participation
	FirstName         *string  `db:"first_name"`
	LastName          *string  `db:"last_name"`
	Department        *string  `db:"department"`
	Batch             *string  `db:"batch"`
	Course            *string  `db:"course"`
	CGPA              *float64 `db:"cgpa"`
	TenthPercentage   *float64 `db:"tenth_percentage"`
	TwelfthPercentage *float64 `db:"twelfth_percentage"`
	BacklogCount      *int     `db:"backlog_count"`
	Email             *string  `db:"email"`
	Mobile            *string  `db:"mobile"`
	UniversityRollNo  *string  `db:"university_roll_no"`
	EnrollmentNo      *string  `db:"enrollment_no"`
}

// RosterEntry is the projected roster row returned to clients.
type RosterEntry struct {
	AdmissionNumber   string              `json:"admissionNumber"`
	FirstName         string              `json:"firstName"`
	LastName          string              `json:"lastName"`
	Department        string              `json:"department"`
	Batch             string              `json:"batch"`
	Course            string              `json:"course"`
	CGPA              *float64            `json:"cgpa,omitempty"`
	TenthPercentage   *float64            `json:"tenthPercentage,omitempty"`
	TwelfthPercentage *float64            `json:"twelfthPercentage,omitempty"`
	BacklogCount      int                 `json:"backlogCount"`
	Email             string              `json:"email"`
	Mobile            string              `json:"mobile"`
	UniversityRollNo  string              `json:"universityRollNo"`
	EnrollmentNo      string              `json:"enrollmentNo"`
	Status            ParticipationStatus `json:"participationStatus"`
	Stage             Stage               `json:"stage"`
	Description       string              `json:"eventDescription"`
	StudentRemoved    bool                `json:"studentRemoved"`
	RegisteredAt      time.Time           `json:"registeredAt"`
}

// EventRoster is the registration list of an event.
type EventRoster struct {
	EventID           string        `json:"eventId"`
	EventName         string        `json:"eventName"`
	OrganizingCompany string        `json:"organizingCompany"`
	Total             int           `json:"total"`
	Entries           []RosterEntry `json:"entries"`
}
