package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caiodutra/extracta/internal/jira"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/jql"
	"github.com/caiodutra/extracta/pkg/models"
)

// ErrNoPendingJobs is returned by ProcessNext when the queue is empty.
var ErrNoPendingJobs = errors.New("no pending jobs")

// ClientFactory builds a Jira client from stored credentials. Injected so
// tests can substitute a fake upstream.
type ClientFactory func(creds *models.JiraConfig) jira.Client

// Service runs extraction jobs end to end: dequeue, fetch, transform,
// persist, and record the outcome.
type Service struct {
	store     store.Store
	queue     *JobQueue
	builder   jql.QueryBuilder
	fetcher   *Fetcher
	persister *Persister
	newClient ClientFactory
	logger    *slog.Logger

	// mu serializes ProcessNext so only one job runs at a time.
	mu sync.Mutex
}

func NewService(s store.Store, q *JobQueue, f *Fetcher, p *Persister, newClient ClientFactory, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		queue:     q,
		fetcher:   f,
		persister: p,
		newClient: newClient,
		logger:    logger,
	}
}

// ProcessNext claims and runs the oldest pending job, returning its final
// state. A failed run is not an error here; the failure lives on the job.
func (s *Service) ProcessNext(ctx context.Context) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.store.NextPendingJob(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoPendingJobs
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	if err := s.queue.MarkProcessing(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("claim job %s: %w", job.ID, err)
	}

	s.runJob(ctx, job)

	return s.store.GetJob(ctx, job.ID)
}

func (s *Service) runJob(ctx context.Context, job *models.Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job_id", job.ID, "type", job.Type, "panic", r)
			s.fail(ctx, job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := s.run(ctx, job); err != nil {
		s.logger.Error("job failed", "job_id", job.ID, "type", job.Type,
			"retry_count", job.RetryCount, "error", err)
		s.fail(ctx, job, err.Error())
	}
}

func (s *Service) fail(ctx context.Context, job *models.Job, msg string) {
	if err := s.queue.MarkFailed(ctx, job.ID, msg); err != nil {
		s.logger.Error("recording job failure failed", "job_id", job.ID, "error", err)
	}
}

func (s *Service) run(ctx context.Context, job *models.Job) error {
	progress := func(p int, step string) {
		if err := s.queue.UpdateProgress(ctx, job.ID, p, step); err != nil {
			s.logger.Warn("progress update failed", "job_id", job.ID, "error", err)
		}
	}

	progress(5, "Connecting to Jira")
	creds, err := s.store.GetJiraConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return errors.New("jira credentials not configured")
	}
	if err != nil {
		return fmt.Errorf("load jira credentials: %w", err)
	}
	if !creds.Complete() {
		return errors.New("jira credentials incomplete")
	}
	client := s.newClient(creds)

	query, err := s.builder.BuildQuery(job.Type, job.Payload)
	if err != nil {
		return err
	}

	progress(10, "Searching issues")
	fetched, err := s.fetcher.FetchAll(ctx, client, query, FieldsFor(job.Type), progress)
	if err != nil {
		return fmt.Errorf("fetch issues: %w", err)
	}

	progress(65, "Transforming records")
	rows := make([]models.Row, 0, len(fetched.Issues))
	for _, issue := range fetched.Issues {
		rows = append(rows, Transform(issue, job.Type)...)
	}
	if job.Type == models.TypeDivergences {
		rows = FilterDivergenceRows(rows)
	}

	progress(80, "Saving records")
	ext := &models.Extraction{
		Type:      job.Type,
		Status:    models.ExtractionStatusProcessing,
		JQLQuery:  query,
		StartDate: job.Payload.StartDate,
		EndDate:   job.Payload.EndDate,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateExtraction(ctx, ext); err != nil {
		return fmt.Errorf("create extraction: %w", err)
	}

	inserted, err := s.persister.Persist(ctx, job.Type, ext.ID, rows, progress)
	if err != nil {
		if ferr := s.store.FailExtraction(ctx, ext.ID, err.Error()); ferr != nil {
			s.logger.Error("recording extraction failure failed", "extraction_id", ext.ID, "error", ferr)
		}
		return fmt.Errorf("persist rows: %w", err)
	}

	progress(95, "Finishing")
	if err := s.store.CompleteExtraction(ctx, ext.ID, fetched.Total); err != nil {
		return fmt.Errorf("complete extraction: %w", err)
	}

	result := &models.JobResult{
		TotalIssues:      fetched.Total,
		ProcessedRecords: len(rows),
		InsertedRecords:  inserted,
		ExtractionID:     ext.ID,
	}
	if fetched.Limited {
		msg := fmt.Sprintf("processing limited to the first %d pages", s.fetcher.cfg.MaxPages)
		result.LimitedProcessing = &msg
	}

	if err := s.queue.MarkCompleted(ctx, job.ID, result); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	s.logger.Info("job completed", "job_id", job.ID, "type", job.Type,
		"total_issues", fetched.Total, "inserted", inserted, "limited", fetched.Limited)
	return nil
}
