package mcp

import (
	"encoding/json"

	"github.com/ksred/job-tracker/internal/models"
)

// Request structures

// ListJobsRequest represents the request structure for listing jobs
type ListJobsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SearchJobsRequest represents the request structure for searching jobs
type SearchJobsRequest struct {
	Query  string `json:"query,omitempty"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// JobIDRequest identifies a single job
type JobIDRequest struct {
	ID int64 `json:"id"`
}

// UpdateJobStatusRequest moves a job to a new status, optionally replacing its notes
type UpdateJobStatusRequest struct {
	ID     int64   `json:"id"`
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// Response structures

// JobListResponse represents the response for list and search
type JobListResponse struct {
	Jobs  []models.Job `json:"jobs"`
	Count int          `json:"count"`
	Total int64        `json:"total"`
	Error string       `json:"error,omitempty"`
}

// JobResponse represents the response carrying a single job
type JobResponse struct {
	Success bool        `json:"success"`
	Job     *models.Job `json:"job,omitempty"`
	Stale   bool        `json:"stale,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DeleteJobResponse represents the response after deleting a job
type DeleteJobResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// toolResponse is implemented by every tool result
type toolResponse interface {
	ToJSON() ([]byte, error)
	Failed() bool
}

// ToJSON converts the response to JSON
func (r JobListResponse) ToJSON() ([]byte, error) { return json.Marshal(r) }

// Failed reports whether the call failed
func (r JobListResponse) Failed() bool { return r.Error != "" }

// ToJSON converts the response to JSON
func (r JobResponse) ToJSON() ([]byte, error) { return json.Marshal(r) }

// Failed reports whether the call failed
func (r JobResponse) Failed() bool { return !r.Success }

// ToJSON converts the response to JSON
func (r DeleteJobResponse) ToJSON() ([]byte, error) { return json.Marshal(r) }

// Failed reports whether the call failed
func (r DeleteJobResponse) Failed() bool { return !r.Success }
