package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

// Persister writes normalized rows in batches. Failed batches are logged
// and skipped; losing rows must not fail an otherwise-successful run, so
// the shortfall is visible only as inserted < processed in the job result.
type Persister struct {
	store     store.Store
	batchSize int
	logger    *slog.Logger
}

func NewPersister(s store.Store, batchSize int, logger *slog.Logger) *Persister {
	return &Persister{store: s, batchSize: batchSize, logger: logger}
}

// Persist inserts rows in batches and returns the count actually inserted.
// Progress moves from 80 to 95 across the batches.
func (p *Persister) Persist(ctx context.Context, extractionType string, extractionID int64, rows []models.Row, onProgress ProgressFunc) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batches := (len(rows) + p.batchSize - 1) / p.batchSize
	inserted := 0

	for i := 0; i < batches; i++ {
		start := i * p.batchSize
		end := start + p.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, err := p.store.InsertRows(ctx, extractionType, extractionID, rows[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			p.logger.Error("batch insert failed, skipping",
				"batch", i+1, "batches", batches, "rows", end-start, "error", err)
			continue
		}
		inserted += n

		onProgress(80+(15*(i+1))/batches, fmt.Sprintf("Saving batch %d of %d", i+1, batches))
	}

	return inserted, nil
}
