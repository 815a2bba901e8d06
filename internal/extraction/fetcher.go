package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caiodutra/extracta/internal/config"
	"github.com/caiodutra/extracta/internal/jira"
	"github.com/caiodutra/extracta/pkg/models"
)

// ProgressFunc reports pipeline progress. Implementations must tolerate
// being called from the worker goroutine.
type ProgressFunc func(progress int, step string)

// FetchResult is the outcome of a full paginated fetch. Limited is set when
// the page ceiling truncated the result set.
type FetchResult struct {
	Total   int
	Issues  []models.RawIssue
	Limited bool
}

// Fetcher pages through a JQL search until the result set is exhausted or
// the page ceiling is hit. Failed pages after the first are skipped, not
// fatal, so one bad page does not lose the whole extraction.
type Fetcher struct {
	cfg    config.ExtractionConfig
	logger *slog.Logger
}

func NewFetcher(cfg config.ExtractionConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, logger: logger}
}

// FetchAll runs the paginated search. The first page establishes the total
// and aborts the fetch on error; later pages are fetched best-effort.
// Progress moves from 20 to 60 across the pages.
func (f *Fetcher) FetchAll(ctx context.Context, client jira.Client, jqlQuery string, fields []string, onProgress ProgressFunc) (*FetchResult, error) {
	first, err := client.Search(ctx, jira.SearchRequest{
		JQL:        jqlQuery,
		StartAt:    0,
		MaxResults: f.cfg.PageSize,
		Fields:     fields,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	result := &FetchResult{Total: first.Total}
	if first.Total == 0 {
		return result, nil
	}
	result.Issues = append(result.Issues, first.Issues...)

	totalPages := (first.Total + f.cfg.PageSize - 1) / f.cfg.PageSize
	pages := totalPages
	if pages > f.cfg.MaxPages {
		pages = f.cfg.MaxPages
		result.Limited = true
		f.logger.Warn("page ceiling reached, truncating fetch",
			"total_pages", totalPages, "max_pages", f.cfg.MaxPages)
	}
	onProgress(pageProgress(1, pages), fmt.Sprintf("Fetching page 1 of %d", pages))

	for page := 1; page < pages; page++ {
		if err := f.throttle(ctx, page); err != nil {
			return nil, err
		}

		res, err := client.Search(ctx, jira.SearchRequest{
			JQL:        jqlQuery,
			StartAt:    page * f.cfg.PageSize,
			MaxResults: f.cfg.PageSize,
			Fields:     fields,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Error("page fetch failed, skipping", "page", page, "error", err)
			continue
		}

		result.Issues = append(result.Issues, res.Issues...)
		onProgress(pageProgress(page+1, pages), fmt.Sprintf("Fetching page %d of %d", page+1, pages))
	}

	return result, nil
}

// throttle pauses briefly every ThrottleEvery pages to stay under upstream
// rate limits on long fetches.
func (f *Fetcher) throttle(ctx context.Context, page int) error {
	if f.cfg.ThrottleEvery <= 0 || page%f.cfg.ThrottleEvery != 0 {
		return nil
	}
	timer := time.NewTimer(f.cfg.ThrottlePause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pageProgress maps page n of total onto the 20..60 progress band.
func pageProgress(page, pages int) int {
	if pages <= 0 {
		return 60
	}
	return 20 + (40*page)/pages
}
