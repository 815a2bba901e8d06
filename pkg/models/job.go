package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Extraction type identifiers. Each type has its own JQL query, transform
// tables and row partition.
const (
	TypeDivergences = "divergences"
	TypeDamages     = "damages"
	TypeQuality     = "quality"
	TypeReturns     = "returns"
)

// DefaultMaxRetries is the retry ceiling applied to new jobs.
const DefaultMaxRetries = 3

// ValidType reports whether t names a known extraction type.
func ValidType(t string) bool {
	switch t {
	case TypeDivergences, TypeDamages, TypeQuality, TypeReturns:
		return true
	}
	return false
}

// JobPayload holds the immutable input parameters of an extraction job.
// StartDate/EndDate bound the divergences query; JQL, when set, overrides
// the built-in query for the job's type.
type JobPayload struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	JQL       string `json:"jql,omitempty"`
}

// JobResult is the success payload of a completed extraction job.
// LimitedProcessing is non-nil when the page ceiling truncated the fetch,
// so a "completed" job can still be marked as partial.
type JobResult struct {
	TotalIssues       int     `json:"total_issues"`
	ProcessedRecords  int     `json:"processed_records"`
	InsertedRecords   int     `json:"inserted_records"`
	ExtractionID      int64   `json:"extraction_id"`
	LimitedProcessing *string `json:"limited_processing,omitempty"`
}

// Job is the durable state of one extraction attempt. The API returns a
// job id on POST /api/v1/extractions; the client polls
// GET /api/v1/jobs/{id} until status is completed or failed.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Type         string     `db:"type"          json:"type"`
	Status       string     `db:"status"        json:"status"`
	Progress     int        `db:"progress"      json:"progress"`
	CurrentStep  string     `db:"current_step"  json:"current_step"`
	Payload      JobPayload `db:"payload"       json:"payload"`
	Result       *JobResult `db:"result"        json:"result,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int        `db:"retry_count"   json:"retry_count"`
	MaxRetries   int        `db:"max_retries"   json:"max_retries"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
