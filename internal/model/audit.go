// internal/model/audit.go
package model

import "time"

type AuditAction string

const (
	AuditSendCompleted AuditAction = "send_completed"
	AuditSendFailed    AuditAction = "send_failed"
	AuditScheduled     AuditAction = "scheduled"
	AuditCancelled     AuditAction = "cancelled"
	AuditResend        AuditAction = "resend"
)

// AuditEvent records one terminal dispatch outcome.
type AuditEvent struct {
	ID          string      `db:"id" json:"id"`
	Action      AuditAction `db:"action" json:"action"`
	Reference   string      `db:"reference" json:"reference"` // job, scheduled message or history ids
	Recipients  []string    `db:"recipients" json:"recipients"`
	SentCount   int         `db:"sent_count" json:"sent_count"`
	FailedCount int         `db:"failed_count" json:"failed_count"`
	Detail      string      `db:"detail" json:"detail,omitempty"`
	OccurredAt  time.Time   `db:"occurred_at" json:"occurred_at"`
}
