package models

import "time"

const (
	ExtractionStatusProcessing = "processing"
	ExtractionStatusCompleted  = "completed"
	ExtractionStatusError      = "error"
)

// Extraction is the durable summary of one finished (or failed) extraction
// run. The per-type row partitions reference it by id.
type Extraction struct {
	ID           int64      `db:"id"            json:"id"`
	Type         string     `db:"type"          json:"type"`
	Status       string     `db:"status"        json:"status"`
	JQLQuery     string     `db:"jql_query"     json:"jql_query"`
	StartDate    string     `db:"start_date"    json:"start_date"`
	EndDate      string     `db:"end_date"      json:"end_date"`
	TotalIssues  int        `db:"total_issues"  json:"total_issues"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
}

// JiraConfig holds the upstream credentials consumed by the pipeline.
// Credential management (forms, multi-user storage) lives outside this
// service; the store only reads the single configured row.
type JiraConfig struct {
	Domain    string    `db:"domain"     json:"domain"`
	Email     string    `db:"email"      json:"email"`
	Token     string    `db:"token"      json:"token"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether all three credential parts are present.
func (c *JiraConfig) Complete() bool {
	return c.Domain != "" && c.Email != "" && c.Token != ""
}
