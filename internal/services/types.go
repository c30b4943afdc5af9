package services

import (
	"encoding/json"

	"github.com/ksred/job-tracker/internal/models"
)

// Paging bounds for list and search
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// NormalizePage applies the paging defaults: a non-positive limit becomes
// DefaultLimit, limits above MaxLimit are capped and negative offsets become 0.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SearchCriteria narrows a listing. Empty fields do not filter.
type SearchCriteria struct {
	Term   string `json:"searchTerm"`
	Status string `json:"status"`
}

// DeleteResult confirms a removal
type DeleteResult struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

// Stats summarises the tracked applications
type Stats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"byStatus"`
	ByGroup     map[string]int64 `json:"byGroup"`
	Stale       int64            `json:"stale"`
	GeneratedAt int64            `json:"generatedAt"`
}

// ToJSON converts the stats to JSON
func (s *Stats) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

// sampleJobs are inserted by Seed
func sampleJobs() []models.JobFields {
	return []models.JobFields{
		{
			Title:      "Senior Frontend Developer",
			Company:    "Tech Innovations",
			Location:   strPtr("London, UK"),
			RemoteType: models.RemoteTypeHybrid,
			SalaryMin:  intPtr(70000),
			SalaryMax:  intPtr(90000),
			Status:     models.StatusApplied,
			JobURL:     strPtr("https://example.com/job1"),
			Notes:      strPtr("Applied through company website. Need to follow up next week."),
		},
		{
			Title:      "Full Stack Developer",
			Company:    "Digital Solutions",
			Location:   strPtr("Manchester, UK"),
			RemoteType: models.RemoteTypeRemote,
			SalaryMin:  intPtr(65000),
			SalaryMax:  intPtr(80000),
			Status:     models.StatusInterview,
			JobURL:     strPtr("https://example.com/job2"),
			Notes:      strPtr("First interview scheduled for next Monday at 2pm."),
		},
	}
}
