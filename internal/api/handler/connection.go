package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/caiodutra/extracta/internal/api/response"
	"github.com/caiodutra/extracta/internal/extraction"
	"github.com/caiodutra/extracta/internal/jira"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

// ConfigGetter reads the stored Jira credentials.
type ConfigGetter interface {
	GetJiraConfig(ctx context.Context) (*models.JiraConfig, error)
}

// NewConnectionTestHandler returns an http.HandlerFunc for POST /api/v1/jira/test.
// It probes the configured Jira site with the stored credentials and reports
// whether they work, without touching any job state.
func NewConnectionTestHandler(cfg ConfigGetter, newClient extraction.ClientFactory, probeTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := cfg.GetJiraConfig(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusBadRequest, "NOT_CONFIGURED",
				"Jira credentials are not configured", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if !creds.Complete() {
			response.Error(w, http.StatusBadRequest, "NOT_CONFIGURED",
				"Jira credentials are incomplete", nil)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		user, err := newClient(creds).Myself(ctx)
		switch {
		case err == nil:
		case errors.Is(err, jira.ErrJiraAuth):
			response.Error(w, http.StatusUnauthorized, "JIRA_AUTH_FAILED",
				"Jira rejected the configured credentials", nil)
			return
		default:
			response.Error(w, http.StatusBadGateway, "JIRA_UNREACHABLE",
				"Could not reach the Jira site", nil)
			return
		}

		response.JSON(w, map[string]any{
			"connected": true,
			"user":      user.DisplayName,
		})
	}
}
