package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caiodutra/extracta/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jira config ---

// GetJiraConfig reads the single configured credential row.
func (s *PostgresStore) GetJiraConfig(ctx context.Context) (*models.JiraConfig, error) {
	var c models.JiraConfig
	err := s.pool.QueryRow(ctx,
		`SELECT domain, email, token, updated_at FROM jira_configs ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&c.Domain, &c.Email, &c.Token, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get jira config: %w", err)
	}
	return &c, nil
}

// --- Jobs ---

const jobColumns = `id, type, status, progress, current_step, payload, result, error_message,
	 retry_count, max_retries, created_at, updated_at, started_at, completed_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.Progress, &j.CurrentStep, &j.Payload, &j.Result,
		&j.ErrorMessage, &j.RetryCount, &j.MaxRetries, &j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO extraction_jobs (id, type, status, progress, current_step, payload, retry_count, max_retries, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Type, job.Status, job.Progress, job.CurrentStep, job.Payload,
		job.RetryCount, job.MaxRetries, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM extraction_jobs WHERE id = $1`, id))
}

// NextPendingJob returns the oldest pending job, or ErrNotFound when the
// queue is empty.
func (s *PostgresStore) NextPendingJob(ctx context.Context) (*models.Job, error) {
	return scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM extraction_jobs
		 WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`))
}

// MarkJobProcessing transitions a pending job to processing and resets its
// per-attempt progress. Only pending jobs are eligible.
func (s *PostgresStore) MarkJobProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET status = 'processing', progress = 0, current_step = '', error_message = NULL,
		     started_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkJobCompleted records the terminal success state with its result
// payload. A job that already reached a terminal state is left untouched.
func (s *PostgresStore) MarkJobCompleted(ctx context.Context, id uuid.UUID, result *models.JobResult) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET status = 'completed', progress = 100, current_step = 'Completed',
		     result = $2, error_message = NULL, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`, id, result)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalNoOp(ctx, id)
	}
	return nil
}

// MarkJobFailed records a failed attempt. Jobs that have retries left go
// back to pending with an incremented retry count; exhausted jobs become
// terminally failed, so a failed job always shows retry_count == max_retries.
// A job that already reached a terminal state is left untouched.
func (s *PostgresStore) MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET status       = CASE WHEN retry_count < max_retries THEN 'pending' ELSE 'failed' END,
		     retry_count  = CASE WHEN retry_count < max_retries THEN retry_count + 1 ELSE retry_count END,
		     completed_at = CASE WHEN retry_count < max_retries THEN NULL ELSE NOW() END,
		     error_message = $2, updated_at = NOW()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`, id, errMsg)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalNoOp(ctx, id)
	}
	return nil
}

// terminalNoOp resolves a guarded terminal UPDATE that matched no rows: an
// existing terminal job makes the transition an idempotent no-op, anything
// else is a missing job.
func (s *PostgresStore) terminalNoOp(ctx context.Context, id uuid.UUID) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return nil
	}
	return ErrNotFound
}

// UpdateJobProgress advances progress and the human-readable step. Progress
// never moves backwards within an attempt and stays inside 0..100.
func (s *PostgresStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress int, step string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs
		 SET progress = GREATEST(progress, $2), current_step = $3, updated_at = NOW()
		 WHERE id = $1`, id, progress, step)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// --- Extractions ---

func (s *PostgresStore) CreateExtraction(ctx context.Context, e *models.Extraction) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO extractions (type, status, jql_query, start_date, end_date, total_issues, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.Type, e.Status, e.JQLQuery, e.StartDate, e.EndDate, e.TotalIssues, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create extraction: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteExtraction(ctx context.Context, id int64, totalIssues int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extractions SET status = 'completed', total_issues = $2, completed_at = NOW()
		 WHERE id = $1`, id, totalIssues)
	if err != nil {
		return fmt.Errorf("complete extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FailExtraction(ctx context.Context, id int64, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extractions SET status = 'error', error_message = $2, completed_at = NOW()
		 WHERE id = $1`, id, errMsg)
	if err != nil {
		return fmt.Errorf("fail extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListExtractions(ctx context.Context, filter ExtractionFilter) ([]*models.Extraction, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, filter.Type)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM extractions WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count extractions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT id, type, status, jql_query, start_date, end_date, total_issues, error_message, created_at, completed_at
		 FROM extractions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var extractions []*models.Extraction
	for rows.Next() {
		var e models.Extraction
		if err := rows.Scan(&e.ID, &e.Type, &e.Status, &e.JQLQuery, &e.StartDate, &e.EndDate,
			&e.TotalIssues, &e.ErrorMessage, &e.CreatedAt, &e.CompletedAt); err != nil {
			return nil, 0, fmt.Errorf("scan extraction: %w", err)
		}
		extractions = append(extractions, &e)
	}
	return extractions, total, rows.Err()
}

// --- Extraction rows ---

// rowTables maps each extraction type to its partition table and the column
// order used for bulk inserts. Column names match the transform row keys.
var rowTables = map[string]struct {
	Table   string
	Columns []string
}{
	models.TypeDivergences: {
		Table: "extraction_divergences",
		Columns: []string{"log_key", "status", "created_date", "cd_type", "divergence_type",
			"receipt_date", "store", "category", "material",
			"charged_qty", "received_qty", "charged_kg", "received_kg"},
	},
	models.TypeDamages: {
		Table: "extraction_damages",
		Columns: []string{"log_key", "created_date", "status", "reported_at", "reporter",
			"store", "product", "quantity", "damage_type"},
	},
	models.TypeQuality: {
		Table: "extraction_quality",
		Columns: []string{"log_key", "created_date", "status", "next_inventory_date",
			"reporter", "store", "product", "quantity"},
	},
	models.TypeReturns: {
		Table:   "extraction_returns",
		Columns: []string{"log_key", "created_date", "reporter", "store", "return_type", "status"},
	},
}

// InsertRows bulk-inserts one batch of normalized rows into the partition
// table for the given extraction type and returns the inserted count.
func (s *PostgresStore) InsertRows(ctx context.Context, extractionType string, extractionID int64, rows []models.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	spec, ok := rowTables[extractionType]
	if !ok {
		return 0, fmt.Errorf("insert rows: unknown extraction type %q", extractionType)
	}

	columns := append([]string{"extraction_id"}, spec.Columns...)
	source := make([][]any, 0, len(rows))
	for _, row := range rows {
		values := make([]any, 0, len(columns))
		values = append(values, extractionID)
		for _, col := range spec.Columns {
			values = append(values, row[col])
		}
		source = append(source, values)
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{spec.Table}, columns, pgx.CopyFromRows(source))
	if err != nil {
		return 0, fmt.Errorf("insert %s rows: %w", extractionType, err)
	}
	return int(n), nil
}
