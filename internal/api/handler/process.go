package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/caiodutra/extracta/internal/api/response"
	"github.com/caiodutra/extracta/internal/extraction"
	"github.com/caiodutra/extracta/pkg/models"
)

// Processor runs the next pending extraction job.
type Processor interface {
	ProcessNext(ctx context.Context) (*models.Job, error)
}

// NewProcessHandler returns an http.HandlerFunc for POST /api/v1/jobs/process.
// The background worker normally drains the queue; this endpoint lets an
// operator force a run without waiting for the poll interval.
func NewProcessHandler(svc Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.ProcessNext(r.Context())
		if errors.Is(err, extraction.ErrNoPendingJobs) {
			response.JSON(w, map[string]any{"message": "no pending jobs"})
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		// A job that ran and failed is still a processed job; the outcome
		// lives in the job record.
		response.JSON(w, job)
	}
}
