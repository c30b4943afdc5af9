package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/utils"
)

// orderByCompany is the listing order shared by List and Search
const orderByCompany = "company COLLATE NOCASE ASC, id ASC"

// JobService handles job application records
type JobService struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewJobService creates a new instance of JobService
func NewJobService(db *gorm.DB, logger zerolog.Logger) *JobService {
	return &JobService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for timestamps
func (s *JobService) WithClock(now func() time.Time) *JobService {
	s.now = now
	return s
}

// List returns one page of jobs ordered by company name
func (s *JobService) List(ctx context.Context, limit, offset int) ([]models.Job, error) {
	limit, offset = NormalizePage(limit, offset)

	jobs := []models.Job{}
	err := s.db.WithContext(ctx).
		Order(orderByCompany).
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list jobs")
		return nil, utils.WrapDatabaseError("list jobs", err)
	}

	return jobs, nil
}

// CountAll returns the number of stored jobs
func (s *JobService) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Job{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to count jobs")
		return 0, utils.WrapDatabaseError("count jobs", err)
	}
	return count, nil
}

// Get retrieves a job by its ID
func (s *JobService) Get(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.WrapNotFoundError("job", fmt.Sprintf("%d", id))
		}
		s.logger.Error().Err(err).Int64("job_id", id).Msg("failed to get job")
		return nil, utils.WrapDatabaseError("get job", err)
	}
	return &job, nil
}

// Create stores a new job. Missing work mode and status take their defaults;
// the timestamp is the supplied one, normalized to epoch milliseconds, or now.
func (s *JobService) Create(ctx context.Context, fields models.JobFields) (*models.Job, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	job := buildJob(fields)
	job.LastUpdated = fields.LastUpdated.Millis(s.now())

	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to create job")
		return nil, utils.WrapDatabaseError("create job", err)
	}

	s.logger.Debug().
		Int64("job_id", job.ID).
		Str("company", job.Company).
		Msg("Job created")

	return &job, nil
}

// Update overwrites every column of an existing job and refreshes its timestamp
func (s *JobService) Update(ctx context.Context, id int64, fields models.JobFields) (*models.Job, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	job := buildJob(fields)
	job.ID = id
	job.LastUpdated = s.now().UnixMilli()

	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"jobTitle":    job.Title,
			"company":     job.Company,
			"location":    job.Location,
			"remoteType":  job.RemoteType,
			"salaryMin":   job.SalaryMin,
			"salaryMax":   job.SalaryMax,
			"status":      job.Status,
			"jobUrl":      job.JobURL,
			"notes":       job.Notes,
			"lastUpdated": job.LastUpdated,
		})
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Int64("job_id", id).Msg("failed to update job")
		return nil, utils.WrapDatabaseError("update job", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, utils.WrapNotFoundError("job", fmt.Sprintf("%d", id))
	}

	s.logger.Debug().Int64("job_id", id).Str("status", job.Status).Msg("Job updated")

	return &job, nil
}

// Delete removes a job by ID
func (s *JobService) Delete(ctx context.Context, id int64) (*DeleteResult, error) {
	result := s.db.WithContext(ctx).Delete(&models.Job{}, id)
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Int64("job_id", id).Msg("failed to delete job")
		return nil, utils.WrapDatabaseError("delete job", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, utils.WrapNotFoundError("job", fmt.Sprintf("%d", id))
	}

	s.logger.Debug().Int64("job_id", id).Msg("Job deleted")

	return &DeleteResult{ID: id, Deleted: true}, nil
}

// Search returns one page of jobs matching the criteria, in List order
func (s *JobService) Search(ctx context.Context, criteria SearchCriteria, limit, offset int) ([]models.Job, error) {
	limit, offset = NormalizePage(limit, offset)

	jobs := []models.Job{}
	err := s.searchQuery(ctx, criteria).
		Order(orderByCompany).
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		s.logger.Error().Err(err).Str("term", criteria.Term).Msg("failed to search jobs")
		return nil, utils.WrapDatabaseError("search jobs", err)
	}

	return jobs, nil
}

// CountSearch returns the number of jobs matching the criteria
func (s *JobService) CountSearch(ctx context.Context, criteria SearchCriteria) (int64, error) {
	var count int64
	if err := s.searchQuery(ctx, criteria).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to count search results")
		return 0, utils.WrapDatabaseError("count search results", err)
	}
	return count, nil
}

// searchQuery builds the shared predicate for Search and CountSearch
func (s *JobService) searchQuery(ctx context.Context, criteria SearchCriteria) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Job{})

	if term := strings.TrimSpace(criteria.Term); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where(
			`(LOWER(jobTitle) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\' OR LOWER(COALESCE(notes, '')) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}

	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}

	return query
}

// Stats counts jobs per status and status group, and the stale ones as of now
func (s *JobService) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	type statusCount struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var rows []statusCount
	err := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Select("COALESCE(status, '') AS status, COUNT(*) AS count").
		Group("COALESCE(status, '')").
		Scan(&rows).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count jobs by status")
		return nil, utils.WrapDatabaseError("count jobs by status", err)
	}

	stats := &Stats{
		ByStatus: make(map[string]int64, len(models.Statuses)),
		ByGroup: map[string]int64{
			models.GroupApplied:  0,
			models.GroupActive:   0,
			models.GroupArchived: 0,
		},
		GeneratedAt: now.UnixMilli(),
	}
	for _, status := range models.Statuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[row.Status] += row.Count
		stats.ByGroup[models.StatusGroup(row.Status)] += row.Count
	}

	cutoff := now.Add(-models.StaleAfter).UnixMilli()
	err = s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("lastUpdated > 0 AND lastUpdated < ?", cutoff).
		Where("(status IS NULL OR status NOT IN ?)", []string{models.StatusRejected, models.StatusWithdrawn}).
		Count(&stats.Stale).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count stale jobs")
		return nil, utils.WrapDatabaseError("count stale jobs", err)
	}

	return stats, nil
}

// Seed inserts the sample applications in one transaction
func (s *JobService) Seed(ctx context.Context) ([]models.Job, error) {
	now := s.now().UnixMilli()
	var created []models.Job

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fields := range sampleJobs() {
			job := buildJob(fields)
			job.LastUpdated = now
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
			created = append(created, job)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to seed jobs")
		return nil, utils.WrapDatabaseError("seed jobs", err)
	}

	s.logger.Info().Int("count", len(created)).Msg("Seeded sample jobs")
	return created, nil
}

// validateFields enforces the invariants every stored record holds
func validateFields(fields models.JobFields) error {
	errs := utils.FieldErrors{}
	if strings.TrimSpace(fields.Title) == "" {
		errs.Add("jobTitle", "Job title is required")
	}
	if strings.TrimSpace(fields.Company) == "" {
		errs.Add("company", "Company is required")
	}
	if fields.SalaryMin != nil && fields.SalaryMax != nil && *fields.SalaryMin > *fields.SalaryMax {
		errs.Add("salary", "Minimum salary cannot be greater than maximum salary")
	}
	return errs.Err()
}

// buildJob maps the writable fields onto a Job, filling defaults
func buildJob(fields models.JobFields) models.Job {
	job := models.Job{
		Title:      fields.Title,
		Company:    fields.Company,
		Location:   fields.Location,
		RemoteType: fields.RemoteType,
		SalaryMin:  fields.SalaryMin,
		SalaryMax:  fields.SalaryMax,
		Status:     fields.Status,
		JobURL:     fields.JobURL,
		Notes:      fields.Notes,
	}
	if job.RemoteType == "" {
		job.RemoteType = models.RemoteTypeOnSite
	}
	if job.Status == "" {
		job.Status = models.StatusApplied
	}
	return job
}

// escapeLike escapes LIKE wildcards so the term matches literally
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
