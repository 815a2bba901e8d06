package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caiodutra/extracta/internal/jira"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory store.Store for pipeline tests. It mirrors the
// Postgres implementation's transition semantics.
type memStore struct {
	mu          sync.Mutex
	jiraConfig  *models.JiraConfig
	jobs        map[uuid.UUID]*models.Job
	extractions map[int64]*models.Extraction
	rows        map[int64][]models.Row
	nextExtID   int64

	insertCalls    int
	failInsertFor  int // fail the first N InsertRows calls
	insertErr      error
	extractionErr  error // returned by CreateExtraction when set
	nextPendingErr error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:        make(map[uuid.UUID]*models.Job),
		extractions: make(map[int64]*models.Extraction),
		rows:        make(map[int64][]models.Row),
		insertErr:   errors.New("insert refused"),
	}
}

var _ store.Store = (*memStore)(nil)

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) GetJiraConfig(ctx context.Context) (*models.JiraConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jiraConfig == nil {
		return nil, store.ErrNotFound
	}
	cfg := *m.jiraConfig
	return &cfg, nil
}

func (m *memStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *job
	m.jobs[job.ID] = &j
	return nil
}

func (m *memStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j := *job
	return &j, nil
}

func (m *memStore) NextPendingJob(ctx context.Context) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextPendingErr != nil {
		return nil, m.nextPendingErr
	}
	var oldest *models.Job
	for _, job := range m.jobs {
		if job.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, store.ErrNotFound
	}
	j := *oldest
	return &j, nil
}

func (m *memStore) MarkJobProcessing(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusProcessing
	job.Progress = 0
	job.CurrentStep = ""
	job.ErrorMessage = nil
	job.StartedAt = &now
	job.UpdatedAt = now
	return nil
}

func (m *memStore) MarkJobCompleted(ctx context.Context, id uuid.UUID, result *models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = "Completed"
	job.Result = result
	job.ErrorMessage = nil
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

func (m *memStore) MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	if job.RetryCount < job.MaxRetries {
		job.Status = models.JobStatusPending
		job.RetryCount++
		job.CompletedAt = nil
	} else {
		job.Status = models.JobStatusFailed
		job.CompletedAt = &now
	}
	job.ErrorMessage = &errMsg
	job.UpdatedAt = now
	return nil
}

func (m *memStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress int, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if progress > 100 {
		progress = 100
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.CurrentStep = step
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) CreateExtraction(ctx context.Context, e *models.Extraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extractionErr != nil {
		return m.extractionErr
	}
	m.nextExtID++
	e.ID = m.nextExtID
	copied := *e
	m.extractions[e.ID] = &copied
	return nil
}

func (m *memStore) CompleteExtraction(ctx context.Context, id int64, totalIssues int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.extractions[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = models.ExtractionStatusCompleted
	e.TotalIssues = totalIssues
	e.CompletedAt = &now
	return nil
}

func (m *memStore) FailExtraction(ctx context.Context, id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.extractions[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = models.ExtractionStatusError
	e.ErrorMessage = &errMsg
	e.CompletedAt = &now
	return nil
}

func (m *memStore) ListExtractions(ctx context.Context, filter store.ExtractionFilter) ([]*models.Extraction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Extraction
	for _, e := range m.extractions {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (m *memStore) InsertRows(ctx context.Context, extractionType string, extractionID int64, rows []models.Row) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertCalls <= m.failInsertFor {
		return 0, m.insertErr
	}
	m.rows[extractionID] = append(m.rows[extractionID], rows...)
	return len(rows), nil
}

// memCache is an in-memory cache.Cache for pipeline tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	jobs map[uuid.UUID]*models.Job
}

func newMemCache() *memCache {
	return &memCache{
		data: make(map[string][]byte),
		jobs: make(map[uuid.UUID]*models.Job),
	}
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok, nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	j := *job
	c.jobs[job.ID] = &j
	return nil
}

func (c *memCache) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return nil, false, nil
	}
	j := *job
	return &j, true, nil
}

func (c *memCache) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, jobID)
	return nil
}

func (c *memCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

// fakeJira serves canned search pages keyed by startAt offset.
type fakeJira struct {
	mu     sync.Mutex
	total  int
	pages  map[int][]models.RawIssue
	failAt map[int]error
	calls  []jira.SearchRequest
}

var _ jira.Client = (*fakeJira)(nil)

func (f *fakeJira) Search(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err, ok := f.failAt[req.StartAt]; ok {
		return nil, err
	}
	return &jira.SearchResult{Total: f.total, Issues: f.pages[req.StartAt]}, nil
}

func (f *fakeJira) Myself(ctx context.Context) (*jira.User, error) {
	return &jira.User{DisplayName: "Extraction Bot", EmailAddress: "bot@example.com"}, nil
}

// issuePage builds n bare returns-type issues keyed LOG-<offset+i>.
func issuePage(offset, n int) []models.RawIssue {
	issues := make([]models.RawIssue, 0, n)
	for i := 0; i < n; i++ {
		issues = append(issues, models.RawIssue{
			Key: fmt.Sprintf("LOG-%d", offset+i),
			Fields: map[string]any{
				"status":            map[string]any{"name": "Open"},
				"created":           "2024-01-10T08:00:00.000-0300",
				"reporter":          map[string]any{"displayName": "Ana"},
				"customfield_10169": map[string]any{"value": "Loja 1"},
				"customfield_11218": map[string]any{"value": "Avaria"},
			},
		})
	}
	return issues
}
