package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
)

// flakyTransport fails the first failures round trips with a connection error
type flakyTransport struct {
	failures int32
	calls    int32
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= atomic.LoadInt32(&f.failures) {
		return nil, errors.New("connection refused")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func newTestAPI(t *testing.T, handler http.Handler, transport http.RoundTripper) *API {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := NewAPI(srv.URL, time.Second, zerolog.Nop()).WithBackOff(zeroBackOff)
	if transport != nil {
		api.WithHTTPClient(&http.Client{Transport: transport, Timeout: time.Second})
	}
	return api
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDefaultBackOff(t *testing.T) {
	b := defaultBackOff()

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 1500*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 2250*time.Millisecond, b.NextBackOff())
}

func TestAPI_RetriesConnectivityFailures(t *testing.T) {
	var served int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&served, 1)
		writeJSON(w, http.StatusOK, models.Job{ID: 3, Title: "Dev", Company: "Acme"})
	})

	t.Run("recovers within the retry budget", func(t *testing.T) {
		transport := &flakyTransport{failures: 2}
		api := newTestAPI(t, handler, transport)

		job, err := api.GetJob(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), job.ID)
		assert.Equal(t, int32(3), atomic.LoadInt32(&transport.calls))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		transport := &flakyTransport{failures: 100}
		api := newTestAPI(t, handler, transport)

		_, err := api.GetJob(context.Background(), 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GET /api/jobs/3")
		assert.Equal(t, int32(MaxRetries+1), atomic.LoadInt32(&transport.calls))
	})

	t.Run("probe tries once", func(t *testing.T) {
		transport := &flakyTransport{failures: 1}
		api := newTestAPI(t, handler, transport)

		require.Error(t, api.Probe(context.Background()))
		assert.Equal(t, int32(1), atomic.LoadInt32(&transport.calls))
	})
}

func TestAPI_DoesNotRetryHTTPErrors(t *testing.T) {
	var calls int32
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": "disk I/O error",
		})
	}), nil)

	_, err := api.ListJobs(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Internal server error", apiErr.Message)
	assert.Equal(t, map[string]string{"details": "disk I/O error"}, apiErr.Details)
}

func TestAPI_ValidationError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Validation failed",
			"details": map[string]string{
				"jobTitle": "Job title is required",
				"company":  "Company is required",
			},
		})
	}), nil)

	_, err := api.CreateJob(context.Background(), models.JobFields{})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.False(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "company: Company is required; jobTitle: Job title is required")
}

func TestAPI_ErrorWithoutBody(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), nil)

	_, err := api.Stats(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
	assert.Nil(t, apiErr.Details)
}

func TestAPI_Requests(t *testing.T) {
	var got *http.Request
	var body models.JobFields
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		switch r.Method {
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, services.DeleteResult{ID: 4, Deleted: true})
		case http.MethodGet:
			writeJSON(w, http.StatusOK, Page{Data: []models.Job{{ID: 1}}, Pagination: Pagination{Limit: 5, Total: 1, CurrentPageCount: 1}})
		default:
			writeJSON(w, http.StatusOK, models.Job{ID: 4, Title: body.Title, Company: body.Company})
		}
	}), nil)
	ctx := context.Background()

	t.Run("search", func(t *testing.T) {
		page, err := api.SearchJobs(ctx, services.SearchCriteria{Term: "go dev", Status: "interview"}, 5, 10)
		require.NoError(t, err)
		assert.Equal(t, "/api/jobs/search", got.URL.Path)
		assert.Equal(t, "go dev", got.URL.Query().Get("q"))
		assert.Equal(t, "interview", got.URL.Query().Get("status"))
		assert.Equal(t, "5", got.URL.Query().Get("limit"))
		assert.Equal(t, "10", got.URL.Query().Get("offset"))
		assert.Equal(t, int64(1), page.Pagination.Total)
	})

	t.Run("list omits zero paging", func(t *testing.T) {
		_, err := api.ListJobs(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, got.URL.RawQuery)
	})

	t.Run("update", func(t *testing.T) {
		job, err := api.UpdateJob(ctx, 4, models.JobFields{Title: "Lead", Company: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, got.Method)
		assert.Equal(t, "/api/jobs/4", got.URL.Path)
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
		assert.Equal(t, "Lead", job.Title)
	})

	t.Run("delete", func(t *testing.T) {
		result, err := api.DeleteJob(ctx, 4)
		require.NoError(t, err)
		assert.True(t, result.Deleted)
		assert.Equal(t, http.MethodDelete, got.Method)
	})
}

func TestAPI_ContextCancelled(t *testing.T) {
	transport := &flakyTransport{failures: 100}
	api := newTestAPI(t, http.NotFoundHandler(), transport)
	api.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := api.GetJob(ctx, 1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
