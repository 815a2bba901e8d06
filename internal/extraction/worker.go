package extraction

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	idleBackoffMin = time.Second
	idleBackoffMax = time.Minute
)

// Worker drives the job queue from a single goroutine. An empty queue
// backs it off exponentially; a submit wakes it immediately.
type Worker struct {
	service *Service
	queue   *JobQueue
	logger  *slog.Logger
}

func NewWorker(service *Service, queue *JobQueue, logger *slog.Logger) *Worker {
	return &Worker{service: service, queue: queue, logger: logger}
}

// Run processes jobs until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	delay := idleBackoffMin
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.service.ProcessNext(ctx)
		switch {
		case errors.Is(err, ErrNoPendingJobs):
		case err != nil:
			w.logger.Error("job processing failed", "error", err)
		default:
			w.logger.Info("job processed", "job_id", job.ID, "status", job.Status)
			delay = idleBackoffMin
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.queue.Wake():
			timer.Stop()
			delay = idleBackoffMin
		case <-timer.C:
			delay *= 2
			if delay > idleBackoffMax {
				delay = idleBackoffMax
			}
		}
	}
}
