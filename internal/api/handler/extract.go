package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/caiodutra/extracta/internal/api/response"
	"github.com/caiodutra/extracta/pkg/models"
)

// Submitter enqueues extraction jobs.
type Submitter interface {
	Submit(ctx context.Context, jobType string, payload models.JobPayload, maxRetries int) (*models.Job, error)
}

// NewExtractHandler returns an http.HandlerFunc for POST /api/v1/extractions.
// The job is queued and processed asynchronously; the client polls the
// returned job id.
func NewExtractHandler(queue Submitter, maxRetries int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type      string `json:"type"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
			JQL       string `json:"jql"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if !models.ValidType(req.Type) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"type must be one of divergences, damages, quality, returns", nil)
			return
		}

		// Only the divergences query is date-bounded; a raw JQL override
		// carries its own constraints.
		if req.Type == models.TypeDivergences && req.JQL == "" {
			if req.StartDate == "" || req.EndDate == "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"start_date and end_date are required for divergences", nil)
				return
			}
			for _, d := range []string{req.StartDate, req.EndDate} {
				if _, err := time.Parse("2006-01-02", d); err != nil {
					response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
						"dates must be in YYYY-MM-DD form", nil)
					return
				}
			}
		}

		job, err := queue.Submit(r.Context(), req.Type, models.JobPayload{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			JQL:       req.JQL,
		}, maxRetries)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not queue the extraction job", nil)
			return
		}

		response.Accepted(w, map[string]any{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}
