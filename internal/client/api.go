package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
)

// Retry policy for connectivity failures
const (
	MaxRetries           = 3
	InitialRetryDelay    = time.Second
	RetryDelayMultiplier = 1.5
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Pagination mirrors the server's paging block
type Pagination struct {
	Limit            int   `json:"limit"`
	Offset           int   `json:"offset"`
	Total            int64 `json:"total"`
	CurrentPageCount int   `json:"currentPageCount"`
}

// Page is one page of jobs from list or search
type Page struct {
	Data       []models.Job `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// ServerStatus is the body of GET /api/status
type ServerStatus struct {
	Status        string  `json:"status"`
	Uptime        float64 `json:"uptime"`
	Timestamp     string  `json:"timestamp"`
	Environment   string  `json:"environment"`
	Version       string  `json:"version"`
	SchemaVersion int     `json:"schemaVersion"`
	Runtime       struct {
		Version  string `json:"version"`
		Platform string `json:"platform"`
		Arch     string `json:"arch"`
	} `json:"runtime"`
}

// API is an HTTP client for the job tracker REST API
type API struct {
	baseURL    string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// NewAPI creates a client for the server at baseURL
func NewAPI(baseURL string, timeout time.Duration, logger zerolog.Logger) *API {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: defaultBackOff,
		logger:     logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (a *API) WithHTTPClient(c *http.Client) *API {
	a.httpClient = c
	return a
}

// WithBackOff replaces the retry delay schedule. MaxRetries still applies.
func (a *API) WithBackOff(factory func() backoff.BackOff) *API {
	a.newBackOff = factory
	return a
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = InitialRetryDelay
	b.Multiplier = RetryDelayMultiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// ListJobs fetches one page of jobs
func (a *API) ListJobs(ctx context.Context, limit, offset int) (*Page, error) {
	q := url.Values{}
	setPaging(q, limit, offset)

	var page Page
	if err := a.do(ctx, http.MethodGet, "/api/jobs", q, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchJobs fetches one page of jobs matching the criteria
func (a *API) SearchJobs(ctx context.Context, criteria services.SearchCriteria, limit, offset int) (*Page, error) {
	q := url.Values{}
	if criteria.Term != "" {
		q.Set("q", criteria.Term)
	}
	if criteria.Status != "" {
		q.Set("status", criteria.Status)
	}
	setPaging(q, limit, offset)

	var page Page
	if err := a.do(ctx, http.MethodGet, "/api/jobs/search", q, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetJob fetches a single job
func (a *API) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	if err := a.do(ctx, http.MethodGet, jobPath(id), nil, nil, &job, true); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob stores a new job
func (a *API) CreateJob(ctx context.Context, fields models.JobFields) (*models.Job, error) {
	var job models.Job
	if err := a.do(ctx, http.MethodPost, "/api/jobs", nil, fields, &job, true); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob replaces a job
func (a *API) UpdateJob(ctx context.Context, id int64, fields models.JobFields) (*models.Job, error) {
	var job models.Job
	if err := a.do(ctx, http.MethodPut, jobPath(id), nil, fields, &job, true); err != nil {
		return nil, err
	}
	return &job, nil
}

// DeleteJob removes a job
func (a *API) DeleteJob(ctx context.Context, id int64) (*services.DeleteResult, error) {
	var result services.DeleteResult
	if err := a.do(ctx, http.MethodDelete, jobPath(id), nil, nil, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats fetches the application statistics
func (a *API) Stats(ctx context.Context) (*services.Stats, error) {
	var stats services.Stats
	if err := a.do(ctx, http.MethodGet, "/api/jobs/stats", nil, nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Status fetches the server status
func (a *API) Status(ctx context.Context) (*ServerStatus, error) {
	var status ServerStatus
	if err := a.do(ctx, http.MethodGet, "/api/status", nil, nil, &status, true); err != nil {
		return nil, err
	}
	return &status, nil
}

// Probe checks reachability with a single attempt
func (a *API) Probe(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/api/status", nil, nil, nil, false)
}

// do sends one request. Transport failures are retried when retry is set;
// HTTP error statuses never are.
func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, retry bool) error {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	attempt := 0
	operation := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(decodeAPIError(resp.StatusCode, data))
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if retry {
		policy = backoff.WithMaxRetries(a.newBackOff(), MaxRetries)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), func(err error, delay time.Duration) {
		a.logger.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Request failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	apiErr.Message = body.Error
	if len(body.Details) > 0 {
		var fields map[string]string
		var text string
		switch {
		case json.Unmarshal(body.Details, &fields) == nil:
			apiErr.Details = fields
		case json.Unmarshal(body.Details, &text) == nil && text != "":
			apiErr.Details = map[string]string{"details": text}
		}
	}
	return apiErr
}

func setPaging(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func jobPath(id int64) string {
	return "/api/jobs/" + strconv.FormatInt(id, 10)
}
