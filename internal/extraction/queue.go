package extraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caiodutra/extracta/internal/cache"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

// jobSnapshotTTL bounds how long a terminal job snapshot stays in the
// cache. Clients stop polling shortly after completion.
const jobSnapshotTTL = time.Hour

// JobQueue is the persistence-backed job queue. State lives in the store;
// the cache carries poll snapshots and the wake channel nudges the worker
// when new work arrives.
type JobQueue struct {
	store  store.Store
	cache  cache.Cache
	logger *slog.Logger
	wake   chan struct{}
}

func NewJobQueue(s store.Store, c cache.Cache, logger *slog.Logger) *JobQueue {
	return &JobQueue{
		store:  s,
		cache:  c,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Submit enqueues a new pending job and wakes the worker.
func (q *JobQueue) Submit(ctx context.Context, jobType string, payload models.JobPayload, maxRetries int) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:         uuid.New(),
		Type:       jobType,
		Status:     models.JobStatusPending,
		Payload:    payload,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := q.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	q.signal()
	return job, nil
}

// Wake returns the channel the worker selects on for new work.
func (q *JobQueue) Wake() <-chan struct{} {
	return q.wake
}

func (q *JobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Lookup returns the job, serving terminal jobs from the cache when
// possible. Cache failures degrade to store reads.
func (q *JobQueue) Lookup(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	cached, found, err := q.cache.GetJob(ctx, id)
	if err != nil {
		q.logger.Warn("job snapshot read failed", "job_id", id, "error", err)
	} else if found {
		return cached, nil
	}

	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		if err := q.cache.SetJob(ctx, job, jobSnapshotTTL); err != nil {
			q.logger.Warn("job snapshot write failed", "job_id", id, "error", err)
		}
	}
	return job, nil
}

// MarkProcessing claims a pending job for the current attempt.
func (q *JobQueue) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if err := q.store.MarkJobProcessing(ctx, id); err != nil {
		return err
	}
	q.invalidate(ctx, id)
	return nil
}

// MarkCompleted records the terminal success state and its result.
func (q *JobQueue) MarkCompleted(ctx context.Context, id uuid.UUID, result *models.JobResult) error {
	if err := q.store.MarkJobCompleted(ctx, id, result); err != nil {
		return err
	}
	q.invalidate(ctx, id)
	return nil
}

// MarkFailed records a failed attempt. The store requeues the job when
// retries remain, so the worker is woken for a prompt retry.
func (q *JobQueue) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	if err := q.store.MarkJobFailed(ctx, id, errMsg); err != nil {
		return err
	}
	q.invalidate(ctx, id)
	q.signal()
	return nil
}

// UpdateProgress advances the job's progress and step label.
func (q *JobQueue) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, step string) error {
	if err := q.store.UpdateJobProgress(ctx, id, progress, step); err != nil {
		return err
	}
	q.invalidate(ctx, id)
	return nil
}

func (q *JobQueue) invalidate(ctx context.Context, id uuid.UUID) {
	if err := q.cache.DeleteJob(ctx, id); err != nil {
		q.logger.Warn("job snapshot invalidation failed", "job_id", id, "error", err)
	}
}
