package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventMode describes how a recruitment drive is conducted.
type EventMode string

const (
	EventModeOnline  EventMode = "ONLINE"
	EventModeOffline EventMode = "OFFLINE"
	EventModeHybrid  EventMode = "HYBRID"
)

// EventStatus is the administrative state of an event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusOngoing   EventStatus = "ONGOING"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event timelines derived from the registration window.
const (
	TimelineUpcoming = "upcoming"
	TimelineOngoing  = "ongoing"
	TimelinePast     = "past"
)

// Event is a job drive organised by a company.
type Event struct {
	ID                  string      `db:"event_id" json:"eventId"`
	Name                string      `db:"event_name" json:"eventName"`
	OrganizingCompany   string      `db:"organizing_company" json:"organizingCompany"`
	CompanyID           *string     `db:"company_id" json:"companyId,omitempty"`
	JobRole             *string     `db:"job_role" json:"jobRole,omitempty"`
	RegistrationStart   time.Time   `db:"registration_start" json:"registrationStart"`
	RegistrationEnd     time.Time   `db:"registration_end" json:"registrationEnd"`
	Mode                EventMode   `db:"event_mode" json:"eventMode"`
	ExpectedCGPA        *float64    `db:"expected_cgpa" json:"expectedCgpa,omitempty"`
	ExpectedPackage     *float64    `db:"expected_package" json:"expectedPackage,omitempty"`
	Description         string      `db:"description" json:"eventDescription"`
	EligibleDepartments StringList  `db:"eligible_departments" json:"eligibleDepartments"`
	Status              EventStatus `db:"status" json:"status"`
	CreatedAt           time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updatedAt"`
}

// RegistrationOpen reports whether now falls on or before the registration end.
func (e Event) RegistrationOpen(now time.Time) bool {
	return !now.After(e.RegistrationEnd)
}

// Timeline classifies the event relative to now.
func (e Event) Timeline(now time.Time) string {
	switch {
	case now.Before(e.RegistrationStart):
		return TimelineUpcoming
	case now.After(e.RegistrationEnd):
		return TimelinePast
	default:
		return TimelineOngoing
	}
}

// EventFilter captures listing criteria for events.
type EventFilter struct {
	Status    *EventStatus
	CompanyID string
	Company   string
	Search    string
	Timeline  string
	Now       time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StringList is a JSON encoded list of strings.
type StringList []string

// Value marshals the list to JSON for persistence.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *StringList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	*l = out
	return nil
}
