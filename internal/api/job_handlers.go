package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
)

// listJobsHandler godoc
// @Summary List jobs
// @Description Get one page of job applications ordered by company
// @Tags jobs
// @Produce json
// @Param limit query int false "Page size (default 100, max 1000)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} JobListResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs [get]
func (s *Server) listJobsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	limit, offset := pageParams(c)

	jobs, err := s.jobs.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err, "Failed to fetch jobs")
		return
	}

	total, err := s.jobs.CountAll(ctx)
	if err != nil {
		s.respondError(c, err, "Failed to fetch jobs")
		return
	}

	c.JSON(http.StatusOK, JobListResponse{
		Data: jobs,
		Pagination: Pagination{
			Limit:            limit,
			Offset:           offset,
			Total:            total,
			CurrentPageCount: len(jobs),
		},
	})
}

// searchJobsHandler godoc
// @Summary Search jobs
// @Description Case-insensitive search over title, company and notes, optionally filtered by status
// @Tags jobs
// @Produce json
// @Param q query string false "Search term"
// @Param status query string false "Exact status"
// @Param limit query int false "Page size (default 100, max 1000)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} JobListResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/search [get]
func (s *Server) searchJobsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	limit, offset := pageParams(c)

	criteria := services.SearchCriteria{
		Term:   c.Query("q"),
		Status: c.Query("status"),
	}

	jobs, err := s.jobs.Search(ctx, criteria, limit, offset)
	if err != nil {
		s.respondError(c, err, "Failed to search jobs")
		return
	}

	total, err := s.jobs.CountSearch(ctx, criteria)
	if err != nil {
		s.respondError(c, err, "Failed to search jobs")
		return
	}

	c.JSON(http.StatusOK, JobListResponse{
		Data: jobs,
		Pagination: Pagination{
			Limit:            limit,
			Offset:           offset,
			Total:            total,
			CurrentPageCount: len(jobs),
		},
		Filters: &SearchFilters{
			SearchTerm: criteria.Term,
			Status:     criteria.Status,
		},
	})
}

// jobStatsHandler godoc
// @Summary Job statistics
// @Description Counts per status and status group, plus applications gone stale
// @Tags jobs
// @Produce json
// @Success 200 {object} services.Stats
// @Failure 500 {object} ErrorResponse
// @Router /jobs/stats [get]
func (s *Server) jobStatsHandler(c *gin.Context) {
	stats, err := s.jobs.Stats(c.Request.Context(), time.Now())
	if err != nil {
		s.respondError(c, err, "Failed to compute job statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getJobHandler godoc
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} models.Job
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (s *Server) getJobHandler(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "Failed to fetch job")
		return
	}
	c.JSON(http.StatusOK, job)
}

// createJobHandler godoc
// @Summary Create a job
// @Description Missing remoteType and status default to on-site and applied
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body models.JobFields true "Job application"
// @Success 201 {object} models.Job
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs [post]
func (s *Server) createJobHandler(c *gin.Context) {
	req, ok := s.bindJobRequest(c)
	if !ok {
		return
	}

	if err := req.validate(false); err != nil {
		s.respondError(c, err, "")
		return
	}

	job, err := s.jobs.Create(c.Request.Context(), req.fields())
	recordMutation("create", err)
	if err != nil {
		s.respondError(c, err, "Failed to create job")
		return
	}

	utils.FromContext(c.Request.Context()).Info().
		Int64("job_id", job.ID).
		Str("company", job.Company).
		Msg("Job created")

	c.JSON(http.StatusCreated, job)
}

// updateJobHandler godoc
// @Summary Update a job
// @Description Replaces the job. A body with a status but neither jobTitle nor company only updates the fields it carries.
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param job body models.JobFields true "Job application"
// @Success 200 {object} models.Job
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/{id} [put]
func (s *Server) updateJobHandler(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	req, ok := s.bindJobRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	statusUpdate := req.isStatusUpdate()

	if err := req.validate(statusUpdate); err != nil {
		s.respondError(c, err, "")
		return
	}

	fields := req.fields()
	if statusUpdate {
		existing, err := s.jobs.Get(ctx, id)
		if err != nil {
			s.respondError(c, err, "Failed to update job")
			return
		}
		fields = req.mergeInto(existing)
	}

	job, err := s.jobs.Update(ctx, id, fields)
	recordMutation("update", err)
	if err != nil {
		s.respondError(c, err, "Failed to update job")
		return
	}

	c.JSON(http.StatusOK, job)
}

// deleteJobHandler godoc
// @Summary Delete a job
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} services.DeleteResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [delete]
func (s *Server) deleteJobHandler(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	result, err := s.jobs.Delete(c.Request.Context(), id)
	recordMutation("delete", err)
	if err != nil {
		s.respondError(c, err, "Failed to delete job")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) bindJobRequest(c *gin.Context) (*jobRequest, bool) {
	body, err := c.GetRawData()
	if err == nil {
		var req *jobRequest
		if req, err = decodeJobRequest(body); err == nil {
			return req, true
		}
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request body",
		Details: err.Error(),
	})
	return nil, false
}

func jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJobID})
		return 0, false
	}
	// ids start at 1, so no record can match
	if id <= 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgJobNotFound})
		return 0, false
	}
	return id, true
}

// pageParams reads limit and offset; unparsable values fall back to the defaults
func pageParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = services.DefaultLimit
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil {
		offset = 0
	}
	return services.NormalizePage(limit, offset)
}
