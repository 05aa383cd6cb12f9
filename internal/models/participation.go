package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParticipationStatus is the lifecycle state of a student in an event.
type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "REGISTERED"
	ParticipationAttempted  ParticipationStatus = "ATTEMPTED"
	ParticipationCompleted  ParticipationStatus = "COMPLETED"
	ParticipationAbsent     ParticipationStatus = "ABSENT"
	ParticipationSelected   ParticipationStatus = "SELECTED"
	ParticipationRejected   ParticipationStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipationRegistered, ParticipationAttempted, ParticipationCompleted,
		ParticipationAbsent, ParticipationSelected, ParticipationRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition may overwrite s.
func (s ParticipationStatus) Terminal() bool {
	return s == ParticipationSelected || s == ParticipationRejected
}

// Stage is the pipeline phase a participation was last moved to.
type Stage string

const (
	StageRegistration   Stage = "REGISTRATION"
	StageOA             Stage = "OA"
	StageInterview      Stage = "INTERVIEW"
	StageFinalSelection Stage = "FINAL_SELECTION"
)

// Participation links one student to one event. The display fields are copied
// from the student and event when the row is created and may go stale.
type Participation struct {
	ID                     string              `db:"id" json:"id"`
	StudentAdmissionNumber string              `db:"student_admission_number" json:"studentAdmissionNumber"`
	EventID                string              `db:"event_id" json:"eventId"`
	Status                 ParticipationStatus `db:"status" json:"participationStatus"`
	Stage                  Stage               `db:"stage" json:"stage"`
	StageDetails           StageDetails        `db:"stage_metadata" json:"stageMetadata"`
	Description            string              `db:"description" json:"eventDescription"`
	StudentName            string              `db:"student_name" json:"studentName"`
	StudentDepartment      string              `db:"student_department" json:"studentDepartment"`
	EventName              string              `db:"event_name" json:"eventName"`
	OrganizingCompany      string              `db:"organizing_company" json:"organizingCompany"`
	JobRole                string              `db:"job_role" json:"jobRole"`
	RegistrationStart      *time.Time          `db:"registration_start" json:"registrationStart,omitempty"`
	RegistrationEnd        *time.Time          `db:"registration_end" json:"registrationEnd,omitempty"`
	CreatedAt              time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time           `db:"updated_at" json:"updatedAt"`
}

// CopyStudent refreshes the denormalised student fields.
func (p *Participation) CopyStudent(s Student) {
	p.StudentAdmissionNumber = s.AdmissionNumber
	p.StudentName = s.FullName()
	p.StudentDepartment = s.Department
}

// CopyEvent refreshes the denormalised event fields.
func (p *Participation) CopyEvent(e Event) {
	p.EventID = e.ID
	p.EventName = e.Name
	p.OrganizingCompany = e.OrganizingCompany
	p.JobRole = ""
	if e.JobRole != nil {
		p.JobRole = *e.JobRole
	}
	start, end := e.RegistrationStart, e.RegistrationEnd
	p.RegistrationStart = &start
	p.RegistrationEnd = &end
}

// TimeWindow is an optional start/end pair attached to a stage.
type TimeWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (w TimeWindow) IsZero() bool { return w.Start == nil && w.End == nil }

func (w TimeWindow) String() string {
	const layout = "2006-01-02 15:04 MST"
	switch {
	case w.Start != nil && w.End != nil:
		return fmt.Sprintf("%s to %s", w.Start.Format(layout), w.End.Format(layout))
	case w.Start != nil:
		return "from " + w.Start.Format(layout)
	case w.End != nil:
		return "until " + w.End.Format(layout)
	}
	return ""
}

// StageMetadata is the stage specific payload attached to a participation.
// Implementations are OnlineAssessment, Interview and FinalSelection.
type StageMetadata interface {
	Stage() Stage
	Summary() string
}

// OnlineAssessment carries the assessment link and its window.
type OnlineAssessment struct {
	Link   string
	Window TimeWindow
}

func (OnlineAssessment) Stage() Stage { return StageOA }

func (m OnlineAssessment) Summary() string {
	out := "Online assessment link: " + m.Link
	if !m.Window.IsZero() {
		out += " (" + m.Window.String() + ")"
	}
	return out
}

// Interview carries a meeting link or a physical venue.
type Interview struct {
	LinkOrVenue string
	Online      bool
	Window      TimeWindow
}

func (Interview) Stage() Stage { return StageInterview }

func (m Interview) Summary() string {
	out := "Interview venue: " + m.LinkOrVenue
	if m.Online {
		out = "Interview link: " + m.LinkOrVenue
	}
	if !m.Window.IsZero() {
		out += " (" + m.Window.String() + ")"
	}
	return out
}

// FinalSelection marks the closing stage; it carries no payload.
type FinalSelection struct{}

func (FinalSelection) Stage() Stage { return StageFinalSelection }

func (FinalSelection) Summary() string { return "Final selection" }

// IsOnlineVenue reports whether an interview location looks like a meeting URL.
func IsOnlineVenue(linkOrVenue string) bool {
	lower := strings.ToLower(linkOrVenue)
	return strings.Contains(lower, "http") || strings.Contains(lower, "meet") || strings.Contains(lower, "zoom")
}

// StageDetails persists a StageMetadata as tagged JSON {"kind": ..., ...}.
// A nil Metadata is stored as SQL NULL.
type StageDetails struct {
	Metadata StageMetadata
}

type stageEnvelope struct {
	Kind        Stage       `json:"kind"`
	Link        string      `json:"link,omitempty"`
	LinkOrVenue string      `json:"linkOrVenue,omitempty"`
	Online      bool        `json:"online,omitempty"`
	Window      *TimeWindow `json:"window,omitempty"`
}

func windowPtr(w TimeWindow) *TimeWindow {
	if w.IsZero() {
		return nil
	}
	return &w
}

// MarshalJSON implements json.Marshaler.
func (d StageDetails) MarshalJSON() ([]byte, error) {
	var env stageEnvelope
	switch m := d.Metadata.(type) {
	case nil:
		return []byte("null"), nil
	case OnlineAssessment:
		env = stageEnvelope{Kind: StageOA, Link: m.Link, Window: windowPtr(m.Window)}
	case Interview:
		env = stageEnvelope{Kind: StageInterview, LinkOrVenue: m.LinkOrVenue, Online: m.Online, Window: windowPtr(m.Window)}
	case FinalSelection:
		env = stageEnvelope{Kind: StageFinalSelection}
	default:
		return nil, fmt.Errorf("unknown stage metadata %T", d.Metadata)
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *StageDetails) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		d.Metadata = nil
		return nil
	}
	var env stageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal stage metadata: %w", err)
	}
	if env == (stageEnvelope{}) {
		d.Metadata = nil
		return nil
	}
	var window TimeWindow
	if env.Window != nil {
		window = *env.Window
	}
	switch env.Kind {
	case StageOA:
		d.Metadata = OnlineAssessment{Link: env.Link, Window: window}
	case StageInterview:
		d.Metadata = Interview{LinkOrVenue: env.LinkOrVenue, Online: env.Online, Window: window}
	case StageFinalSelection:
		d.Metadata = FinalSelection{}
	default:
		return fmt.Errorf("unknown stage metadata kind %q", env.Kind)
	}
	return nil
}

// emptyStageMetadata is stored for participations that have not entered a stage.
const emptyStageMetadata = "{}"

// Value stores the metadata as JSONB. Records without metadata store an empty object.
func (d StageDetails) Value() (driver.Value, error) {
	if d.Metadata == nil {
		return []byte(emptyStageMetadata), nil
	}
	return d.MarshalJSON()
}

// Scan loads JSONB written by Value.
func (d *StageDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Metadata = nil
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported type %T for StageDetails", value)
	}
}
