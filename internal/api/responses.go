package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/utils"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error      string      `json:"error"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
	Stack      string      `json:"stack,omitempty"`
}

// Pagination describes the page returned by list and search
type Pagination struct {
	Limit            int   `json:"limit"`
	Offset           int   `json:"offset"`
	Total            int64 `json:"total"`
	CurrentPageCount int   `json:"currentPageCount"`
}

// SearchFilters echoes the filters applied by a search
type SearchFilters struct {
	SearchTerm string `json:"searchTerm"`
	Status     string `json:"status"`
}

// JobListResponse is returned by GET /api/jobs and GET /api/jobs/search
type JobListResponse struct {
	Data       []models.Job   `json:"data"`
	Pagination Pagination     `json:"pagination"`
	Filters    *SearchFilters `json:"filters,omitempty"`
}

// RuntimeInfo identifies the running binary
type RuntimeInfo struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Status        string      `json:"status"`
	Uptime        float64     `json:"uptime"`
	Timestamp     string      `json:"timestamp"`
	Environment   string      `json:"environment"`
	Version       string      `json:"version"`
	Runtime       RuntimeInfo `json:"runtime"`
	SchemaVersion int         `json:"schemaVersion"`
}

const (
	msgJobNotFound      = "Job not found"
	msgInvalidJobID     = "Invalid job ID"
	msgValidationFailed = "Validation failed"
	msgInternal         = "Internal server error"
)

// respondError maps a service error onto the HTTP error contract.
// message describes the failed operation for unexpected errors. Outside
// production the body carries the stack recorded where the service wrapped
// the error.
func (s *Server) respondError(c *gin.Context, err error, message string) {
	switch {
	case utils.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgJobNotFound})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   msgValidationFailed,
			Details: utils.ValidationDetails(err),
		})
	default:
		_ = c.Error(err)
		resp := ErrorResponse{
			Error:   message,
			Details: err.Error(),
		}
		if !s.config.IsProduction() {
			resp.Stack = utils.ErrorStack(err)
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func errorEnvelope(status int, message string) ErrorResponse {
	return ErrorResponse{
		Error:      message,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
