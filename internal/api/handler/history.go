package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/caiodutra/extracta/internal/api/response"
	"github.com/caiodutra/extracta/internal/cache"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	historyCacheTTL     = 30 * time.Second
)

// HistoryLister pages through finished extraction runs.
type HistoryLister interface {
	ListExtractions(ctx context.Context, filter store.ExtractionFilter) ([]*models.Extraction, int, error)
}

type historyPage struct {
	Items []*models.Extraction `json:"items"`
	Total int                  `json:"total"`
}

// NewHistoryHandler returns an http.HandlerFunc for GET /api/v1/extractions.
// Pages are cached briefly so dashboard polling does not hammer the
// database.
func NewHistoryHandler(s HistoryLister, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		extractionType := q.Get("type")
		if extractionType != "" && !models.ValidType(extractionType) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"type must be one of divergences, damages, quality, returns", nil)
			return
		}

		page := queryInt(q.Get("page"), 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(q.Get("limit"), defaultHistoryLimit)
		if limit < 1 {
			limit = defaultHistoryLimit
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		key := cache.HistoryKey(extractionType, page, limit)
		if cached, ok, err := c.Get(r.Context(), key); err == nil && ok {
			var hp historyPage
			if json.Unmarshal(cached, &hp) == nil {
				writeHistory(w, hp, page, limit)
				return
			}
		}

		items, total, err := s.ListExtractions(r.Context(), store.ExtractionFilter{
			Type:  extractionType,
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		hp := historyPage{Items: items, Total: total}
		if data, err := json.Marshal(hp); err == nil {
			// Best effort; a cache miss just costs another query.
			_ = c.Set(r.Context(), key, data, historyCacheTTL)
		}

		writeHistory(w, hp, page, limit)
	}
}

func writeHistory(w http.ResponseWriter, hp historyPage, page, limit int) {
	items := hp.Items
	if items == nil {
		items = []*models.Extraction{}
	}
	response.Collection(w, items, response.PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   hp.Total,
		HasNext: page*limit < hp.Total,
	})
}

func queryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
