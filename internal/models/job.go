package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Job represents a tracked job application in the database
type Job struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string  `gorm:"column:jobTitle;not null" json:"jobTitle"`
	Company     string  `gorm:"column:company;not null" json:"company"`
	Location    *string `gorm:"column:location" json:"location"`
	RemoteType  string  `gorm:"column:remoteType" json:"remoteType"`
	SalaryMin   *int64  `gorm:"column:salaryMin" json:"salaryMin"`
	SalaryMax   *int64  `gorm:"column:salaryMax" json:"salaryMax"`
	Status      string  `gorm:"column:status" json:"status"`
	JobURL      *string `gorm:"column:jobUrl" json:"jobUrl"`
	Notes       *string `gorm:"column:notes" json:"notes"`
	LastUpdated int64   `gorm:"column:lastUpdated" json:"lastUpdated"` // epoch milliseconds
}

// Valid application statuses
const (
	StatusApplied   = "applied"
	StatusScreening = "screening"
	StatusInterview = "interview"
	StatusFollowup  = "followup"
	StatusOffer     = "offer"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

// Valid work modes
const (
	RemoteTypeOnSite = "on-site"
	RemoteTypeHybrid = "hybrid"
	RemoteTypeRemote = "remote"
)

// Status groups used for summaries and filtering
const (
	GroupApplied  = "applied"
	GroupActive   = "active"
	GroupArchived = "archived"
)

// StaleAfter is how long an open application may go without an update
// before it is flagged.
const StaleAfter = 14 * 24 * time.Hour

// Statuses lists every valid status in pipeline order.
var Statuses = []string{
	StatusApplied,
	StatusScreening,
	StatusInterview,
	StatusFollowup,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// RemoteTypes lists every valid work mode.
var RemoteTypes = []string{RemoteTypeOnSite, RemoteTypeHybrid, RemoteTypeRemote}

// TableName ensures consistent table naming
func (Job) TableName() string {
	return "jobs"
}

// Validate checks the invariants the store relies on
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return errors.New("job title cannot be empty")
	}
	if strings.TrimSpace(j.Company) == "" {
		return errors.New("company cannot be empty")
	}
	if j.SalaryMin != nil && j.SalaryMax != nil && *j.SalaryMin > *j.SalaryMax {
		return errors.New("minimum salary cannot be greater than maximum salary")
	}
	return nil
}

// BeforeCreate runs validation before saving a new job
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	return j.Validate()
}

// Fields returns the writable fields of the job, used when merging partial updates.
func (j *Job) Fields() JobFields {
	return JobFields{
		Title:      j.Title,
		Company:    j.Company,
		Location:   j.Location,
		RemoteType: j.RemoteType,
		SalaryMin:  j.SalaryMin,
		SalaryMax:  j.SalaryMax,
		Status:     j.Status,
		JobURL:     j.JobURL,
		Notes:      j.Notes,
	}
}

// IsArchived reports whether the application is closed.
func (j *Job) IsArchived() bool {
	return StatusGroup(j.Status) == GroupArchived
}

// IsStale reports whether an open application has gone without an update
// for longer than StaleAfter.
func (j *Job) IsStale(now time.Time) bool {
	if j.LastUpdated == 0 || j.IsArchived() {
		return false
	}
	return time.UnixMilli(j.LastUpdated).Before(now.Add(-StaleAfter))
}

// JobFields carries the caller-supplied columns of a job for create and update.
type JobFields struct {
	Title       string       `json:"jobTitle"`
	Company     string       `json:"company"`
	Location    *string      `json:"location,omitempty"`
	RemoteType  string       `json:"remoteType,omitempty"`
	SalaryMin   *int64       `json:"salaryMin,omitempty"`
	SalaryMax   *int64       `json:"salaryMax,omitempty"`
	Status      string       `json:"status,omitempty"`
	JobURL      *string      `json:"jobUrl,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	LastUpdated RawTimestamp `json:"lastUpdated,omitempty"`
}

// IsValidStatus checks if a given status string is valid
func IsValidStatus(s string) bool {
	switch s {
	case StatusApplied, StatusScreening, StatusInterview, StatusFollowup,
		StatusOffer, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// IsValidRemoteType checks if a given work mode string is valid
func IsValidRemoteType(r string) bool {
	switch r {
	case RemoteTypeOnSite, RemoteTypeHybrid, RemoteTypeRemote:
		return true
	default:
		return false
	}
}

// StatusGroup maps a status onto its summary bucket. Unknown statuses count as applied.
func StatusGroup(status string) string {
	switch status {
	case StatusScreening, StatusInterview, StatusFollowup, StatusOffer:
		return GroupActive
	case StatusRejected, StatusWithdrawn:
		return GroupArchived
	default:
		return GroupApplied
	}
}
