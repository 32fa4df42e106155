// internal/model/broadcast.go
package model

import "time"

type JobStatus string

const (
	JobDraft     JobStatus = "DRAFT"
	JobSending   JobStatus = "SENDING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

type BroadcastJob struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Message     string            `json:"message"`
	Recipients  []string          `json:"recipients"`
	TemplateID  string            `json:"templateId,omitempty"`
	Variables   map[string]string `json:"variables"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExecutedAt  *time.Time        `json:"executedAt,omitempty"`
	SentCount   int               `json:"sentCount"`
	FailedCount int               `json:"failedCount"`
	Status      JobStatus         `json:"status"`
}

// CreateBroadcastRequest is the body of the remote broadcast create call.
type CreateBroadcastRequest struct {
	Name       string            `json:"name"`
	Message    string            `json:"message"`
	Recipients []string          `json:"recipients"`
	TemplateID string            `json:"templateId,omitempty"`
	Variables  map[string]string `json:"variables"`
}

type ExecuteResult struct {
	SentCount   int `json:"sentCount"`
	FailedCount int `json:"failedCount"`
}
