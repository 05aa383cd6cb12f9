package models

import "time"

// Audit actions.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionAccountCreate  = "ACCOUNT_CREATE"
	AuditActionAccountUpdate  = "ACCOUNT_UPDATE"

	AuditActionEventCreate   = "EVENT_CREATE"
	AuditActionEventUpdate   = "EVENT_UPDATE"
	AuditActionEventDelete   = "EVENT_DELETE"
	AuditActionStudentDelete = "STUDENT_DELETE"
	AuditActionStudentImport = "STUDENT_IMPORT"
	AuditActionCompanyDelete = "COMPANY_DELETE"
	AuditActionStatusUpdate  = "PARTICIPATION_STATUS_UPDATE"
	AuditActionSendOALinks   = "BULK_SEND_OA_LINKS"
	AuditActionSchedule      = "BULK_SCHEDULE_INTERVIEWS"
	AuditActionFinalSelect   = "BULK_FINAL_SELECTION"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
