package models

import "time"

// DashboardTotals holds directory-wide counters.
type DashboardTotals struct {
	Students       int `db:"students" json:"students"`
	Companies      int `db:"companies" json:"companies"`
	Events         int `db:"events" json:"events"`
	Registrations  int `db:"registrations" json:"registrations"`
	UnreadMessages int `db:"unread_messages" json:"unreadMessages"`
}

// TimelineCounts splits events by their registration window.
type TimelineCounts struct {
	Upcoming int `db:"upcoming" json:"upcoming"`
	Ongoing  int `db:"ongoing" json:"ongoing"`
	Past     int `db:"past" json:"past"`
}

// StatusCount is the number of participations in one status.
type StatusCount struct {
	Status ParticipationStatus `db:"status" json:"status"`
	Count  int                 `db:"count" json:"count"`
}

// DepartmentPlacement summarises selections per department.
type DepartmentPlacement struct {
	Department string  `db:"department" json:"department"`
	Students   int     `db:"students" json:"students"`
	Placed     int     `db:"placed" json:"placed"`
	Rate       float64 `db:"-" json:"placementRate"`
}

// EventActivity is an event with its registration funnel.
type EventActivity struct {
	EventID           string    `db:"event_id" json:"eventId"`
	EventName         string    `db:"event_name" json:"eventName"`
	OrganizingCompany string    `db:"organizing_company" json:"organizingCompany"`
	RegistrationStart time.Time `db:"registration_start" json:"registrationStart"`
	RegistrationEnd   time.Time `db:"registration_end" json:"registrationEnd"`
	Registrations     int       `db:"registrations" json:"registrations"`
	Attempted         int       `db:"attempted" json:"attempted"`
	Selected          int       `db:"selected" json:"selected"`
	Rejected          int       `db:"rejected" json:"rejected"`
	Timeline          string    `db:"-" json:"timeline"`
}

// EventActivityFilter narrows the event activity query.
type EventActivityFilter struct {
	CompanyID string
	// EndingAfter keeps events whose registration closes after this instant.
	EndingAfter *time.Time
	Limit       int
}

// AdminDashboard is the placement cell overview.
type AdminDashboard struct {
	Totals         DashboardTotals       `json:"totals"`
	Timeline       TimelineCounts        `json:"events"`
	Participations []StatusCount         `json:"participations"`
	Departments    []DepartmentPlacement `json:"departments"`
	ActiveEvents   []EventActivity       `json:"activeEvents"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}

// CompanyDashboard is a recruiter's view of its own drives.
type CompanyDashboard struct {
	CompanyID      string          `json:"companyId"`
	Participations []StatusCount   `json:"participations"`
	Events         []EventActivity `json:"events"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}
