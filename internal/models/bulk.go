package models

import "time"

// RegisterParticipationRequest registers one student for one event.
type RegisterParticipationRequest struct {
	StudentAdmissionNumber string `json:"studentAdmissionNumber" validate:"required"`
	EventID                string `json:"eventId" validate:"required"`
	Description            string `json:"description" validate:"max=1000"`
}

// UpdateParticipationStatusRequest manually overrides a participation status.
type UpdateParticipationStatusRequest struct {
	Status      ParticipationStatus `json:"participationStatus" validate:"required"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// BulkTransitionRequest moves a cohort of an event to the next stage. StageLink
// is the assessment link or the interview link/venue.
type BulkTransitionRequest struct {
	EventID                 string     `json:"eventId" validate:"required"`
	StudentAdmissionNumbers []string   `json:"studentAdmissionNumbers"`
	StageLink               string     `json:"stageLink"`
	Description             string     `json:"description" validate:"max=1000"`
	WindowStart             *time.Time `json:"windowStart,omitempty"`
	WindowEnd               *time.Time `json:"windowEnd,omitempty"`
}

// BulkTransitionResult reports the outcome of one bulk run.
type BulkTransitionResult struct {
	AdvancedCount      int      `json:"advancedCount"`
	RejectedCount      int      `json:"rejectedCount"`
	NewlyInsertedCount int      `json:"newlyInsertedCount"`
	Message            string   `json:"message"`
	NotFoundStudents   []string `json:"notFoundStudents"`
}
