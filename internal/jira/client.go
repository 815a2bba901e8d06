package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/caiodutra/extracta/pkg/models"
)

// Sentinel errors for Jira client failures.
var (
	ErrJiraUnreachable = errors.New("jira unreachable")
	ErrJiraAuth        = errors.New("jira authentication failed")
	ErrJiraQueryError  = errors.New("jira search error")
	ErrJiraTimeout     = errors.New("jira request timeout")
)

// Client is the interface for querying the Jira REST API.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	Myself(ctx context.Context) (*User, error)
}

// SearchRequest defines parameters for one page of a JQL search.
type SearchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

// SearchResult is one page of search results. Total is the full match
// count across all pages, not the page length.
type SearchResult struct {
	Total  int               `json:"total"`
	Issues []models.RawIssue `json:"issues"`
}

// User identifies the authenticated Jira account; returned by the
// connectivity probe.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// HTTPClient implements Client against Jira's REST API using basic auth.
type HTTPClient struct {
	baseURL string
	email   string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a new Jira HTTP client for the given site.
func NewHTTPClient(baseURL, email, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search runs one page of a JQL search via POST /rest/api/2/search.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	u := c.baseURL + "/rest/api/2/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrJiraAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrJiraQueryError, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return &result, nil
}

// Myself probes connectivity and credentials via GET /rest/api/3/myself.
func (c *HTTPClient) Myself(ctx context.Context) (*User, error) {
	u := c.baseURL + "/rest/api/3/myself"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrJiraAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrJiraUnreachable, resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decoding myself response: %w", err)
	}

	return &user, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrJiraTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrJiraTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrJiraUnreachable, err)
}
