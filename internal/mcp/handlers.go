package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
)

// Handler manages MCP tool handlers
type Handler struct {
	jobService *services.JobService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHandler creates a new MCP handler
func NewHandler(jobService *services.JobService, logger zerolog.Logger) *Handler {
	return &Handler{
		jobService: jobService,
		logger:     logger,
		now:        time.Now,
	}
}

// handleListJobs handles the list_jobs MCP tool call
func (h *Handler) handleListJobs(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var req ListJobsRequest
	if err := decodeParams(params, &req); err != nil {
		return JobListResponse{Error: err.Error()}, nil
	}

	jobs, err := h.jobService.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return JobListResponse{Error: fmt.Sprintf("failed to list jobs: %v", err)}, nil
	}
	total, err := h.jobService.CountAll(ctx)
	if err != nil {
		return JobListResponse{Error: fmt.Sprintf("failed to count jobs: %v", err)}, nil
	}

	return JobListResponse{Jobs: jobs, Count: len(jobs), Total: total}, nil
}

// handleSearchJobs handles the search_jobs MCP tool call
func (h *Handler) handleSearchJobs(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var req SearchJobsRequest
	if err := decodeParams(params, &req); err != nil {
		return JobListResponse{Error: err.Error()}, nil
	}

	if req.Status != "" && !models.IsValidStatus(req.Status) {
		return JobListResponse{Error: invalidStatusMessage(req.Status)}, nil
	}

	criteria := services.SearchCriteria{Term: req.Query, Status: req.Status}

	jobs, err := h.jobService.Search(ctx, criteria, req.Limit, req.Offset)
	if err != nil {
		return JobListResponse{Error: fmt.Sprintf("failed to search jobs: %v", err)}, nil
	}
	total, err := h.jobService.CountSearch(ctx, criteria)
	if err != nil {
		return JobListResponse{Error: fmt.Sprintf("failed to count jobs: %v", err)}, nil
	}

	h.logger.Debug().
		Str("query", req.Query).
		Str("status", req.Status).
		Int("results", len(jobs)).
		Msg("search_jobs completed")

	return JobListResponse{Jobs: jobs, Count: len(jobs), Total: total}, nil
}

// handleGetJob handles the get_job MCP tool call
func (h *Handler) handleGetJob(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var req JobIDRequest
	if err := decodeParams(params, &req); err != nil {
		return JobResponse{Error: err.Error()}, nil
	}
	if req.ID <= 0 {
		return JobResponse{Error: invalidIDMessage()}, nil
	}

	job, err := h.jobService.Get(ctx, req.ID)
	if err != nil {
		return JobResponse{Error: describe(err, req.ID)}, nil
	}

	return JobResponse{Success: true, Job: job, Stale: job.IsStale(h.now())}, nil
}

// handleAddJob handles the add_job MCP tool call
func (h *Handler) handleAddJob(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var fields models.JobFields
	if err := decodeParams(params, &fields); err != nil {
		return JobResponse{Error: err.Error()}, nil
	}

	if fields.Status != "" && !models.IsValidStatus(fields.Status) {
		return JobResponse{Error: invalidStatusMessage(fields.Status)}, nil
	}
	if fields.RemoteType != "" && !models.IsValidRemoteType(fields.RemoteType) {
		return JobResponse{
			Error: fmt.Sprintf("invalid remote type '%s': must be one of %s", fields.RemoteType, strings.Join(models.RemoteTypes, ", ")),
		}, nil
	}

	job, err := h.jobService.Create(ctx, fields)
	if err != nil {
		h.logger.Warn().Err(err).Msg("add_job failed")
		return JobResponse{Error: describe(err, 0)}, nil
	}

	h.logger.Info().Int64("job_id", job.ID).Str("company", job.Company).Msg("Job added via MCP")

	return JobResponse{Success: true, Job: job}, nil
}

// handleUpdateJobStatus handles the update_job_status MCP tool call.
// Every other field of the job is kept.
func (h *Handler) handleUpdateJobStatus(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var req UpdateJobStatusRequest
	if err := decodeParams(params, &req); err != nil {
		return JobResponse{Error: err.Error()}, nil
	}
	if req.ID <= 0 {
		return JobResponse{Error: invalidIDMessage()}, nil
	}
	if req.Status == "" {
		return JobResponse{Error: utils.RequiredFieldError("status").Error()}, nil
	}
	if !models.IsValidStatus(req.Status) {
		return JobResponse{Error: invalidStatusMessage(req.Status)}, nil
	}

	existing, err := h.jobService.Get(ctx, req.ID)
	if err != nil {
		return JobResponse{Error: describe(err, req.ID)}, nil
	}

	fields := existing.Fields()
	fields.Status = req.Status
	if req.Notes != nil {
		fields.Notes = req.Notes
	}

	job, err := h.jobService.Update(ctx, req.ID, fields)
	if err != nil {
		return JobResponse{Error: describe(err, req.ID)}, nil
	}

	return JobResponse{Success: true, Job: job}, nil
}

// handleDeleteJob handles the delete_job MCP tool call
func (h *Handler) handleDeleteJob(ctx context.Context, params json.RawMessage) (toolResponse, error) {
	var req JobIDRequest
	if err := decodeParams(params, &req); err != nil {
		return DeleteJobResponse{Error: err.Error()}, nil
	}
	if req.ID <= 0 {
		return DeleteJobResponse{Error: invalidIDMessage()}, nil
	}

	if _, err := h.jobService.Delete(ctx, req.ID); err != nil {
		return DeleteJobResponse{Error: describe(err, req.ID)}, nil
	}

	return DeleteJobResponse{
		Success: true,
		Message: fmt.Sprintf("Job %d deleted", req.ID),
	}, nil
}

func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("invalid request format: %v", err)
	}
	return nil
}

// describe renders a service error for the model
func describe(err error, id int64) string {
	switch {
	case utils.IsNotFoundError(err):
		return fmt.Sprintf("job %d not found", id)
	case utils.IsValidationError(err):
		return err.Error()
	default:
		return fmt.Sprintf("internal error: %v", err)
	}
}

func invalidIDMessage() string {
	return utils.InvalidFieldError("id", "must be a positive integer").Error()
}

func invalidStatusMessage(status string) string {
	return fmt.Sprintf("invalid status '%s': must be one of %s", status, strings.Join(models.Statuses, ", "))
}
