package store

import (
	"context"
	"errors"

	"github.com/caiodutra/extracta/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetJiraConfig(ctx context.Context) (*models.JiraConfig, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	NextPendingJob(ctx context.Context) (*models.Job, error)
	MarkJobProcessing(ctx context.Context, id uuid.UUID) error
	MarkJobCompleted(ctx context.Context, id uuid.UUID, result *models.JobResult) error
	MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, progress int, step string) error

	CreateExtraction(ctx context.Context, e *models.Extraction) error
	CompleteExtraction(ctx context.Context, id int64, totalIssues int) error
	FailExtraction(ctx context.Context, id int64, errMsg string) error
	ListExtractions(ctx context.Context, filter ExtractionFilter) ([]*models.Extraction, int, error)

	InsertRows(ctx context.Context, extractionType string, extractionID int64, rows []models.Row) (int, error)
}

type ExtractionFilter struct {
	Type  string
	Page  int
	Limit int
}
