package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/utils"
)

var validate = validator.New()

var (
	statusRule     = "oneof=" + strings.Join(models.Statuses, " ")
	remoteTypeRule = "oneof=" + strings.Join(models.RemoteTypes, " ")
)

// salaryValue accepts a JSON number or a numeric string. Empty strings and
// null count as absent; anything else that is not an integer is kept as invalid
// so it can be reported per field.
type salaryValue struct {
	Value   *int64
	Invalid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (s *salaryValue) UnmarshalJSON(data []byte) error {
	s.Value, s.Invalid = nil, false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var text string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &text); err != nil {
			s.Invalid = true
			return nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(data)
	default:
		s.Invalid = true
		return nil
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		s.Value = &n
		return nil
	}
	// 85000.0 and 8.5e4 are integers too
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		s.Invalid = true
		return nil
	}
	n := int64(f)
	s.Value = &n
	return nil
}

// jobRequest is the body accepted by POST and PUT /api/jobs
type jobRequest struct {
	Title       string              `json:"jobTitle"`
	Company     string              `json:"company"`
	Location    *string             `json:"location"`
	RemoteType  string              `json:"remoteType"`
	SalaryMin   salaryValue         `json:"salaryMin"`
	SalaryMax   salaryValue         `json:"salaryMax"`
	Status      string              `json:"status"`
	JobURL      *string             `json:"jobUrl"`
	Notes       *string             `json:"notes"`
	LastUpdated models.RawTimestamp `json:"lastUpdated"`

	// keys present in the body, null included
	present map[string]bool
}

func decodeJobRequest(body []byte) (*jobRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}

	req := &jobRequest{present: make(map[string]bool, len(raw))}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	for key := range raw {
		req.present[key] = true
	}
	return req, nil
}

// isStatusUpdate reports whether the body only moves the record to a new
// status: a status is given but neither title nor company.
func (r *jobRequest) isStatusUpdate() bool {
	return r.Status != "" && strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Company) == ""
}

// validate checks the body. Status updates are not required to carry title
// and company; they come from the stored record.
func (r *jobRequest) validate(statusUpdate bool) error {
	errs := utils.FieldErrors{}

	if !statusUpdate {
		if validate.Var(strings.TrimSpace(r.Title), "required") != nil {
			errs.Add("jobTitle", "Job title is required")
		}
		if validate.Var(strings.TrimSpace(r.Company), "required") != nil {
			errs.Add("company", "Company is required")
		}
	}

	if r.SalaryMin.Invalid {
		errs.Add("salaryMin", "Salary minimum must be a number")
	}
	if r.SalaryMax.Invalid {
		errs.Add("salaryMax", "Salary maximum must be a number")
	}
	if r.SalaryMin.Value != nil && r.SalaryMax.Value != nil && *r.SalaryMin.Value > *r.SalaryMax.Value {
		errs.Add("salary", "Minimum salary cannot be greater than maximum salary")
	}

	if r.Status != "" && validate.Var(r.Status, statusRule) != nil {
		errs.Add("status", "Status must be one of: "+strings.Join(models.Statuses, ", "))
	}
	if r.RemoteType != "" && validate.Var(r.RemoteType, remoteTypeRule) != nil {
		errs.Add("remoteType", "Remote type must be one of: "+strings.Join(models.RemoteTypes, ", "))
	}

	return errs.Err()
}

// fields converts a full create or update body
func (r *jobRequest) fields() models.JobFields {
	return models.JobFields{
		Title:       strings.TrimSpace(r.Title),
		Company:     strings.TrimSpace(r.Company),
		Location:    r.Location,
		RemoteType:  r.RemoteType,
		SalaryMin:   r.SalaryMin.Value,
		SalaryMax:   r.SalaryMax.Value,
		Status:      r.Status,
		JobURL:      r.JobURL,
		Notes:       r.Notes,
		LastUpdated: r.LastUpdated,
	}
}

// mergeInto overlays every key present in the body onto an existing record
func (r *jobRequest) mergeInto(existing *models.Job) models.JobFields {
	merged := existing.Fields()

	for key := range r.present {
		switch key {
		case "jobTitle":
			if t := strings.TrimSpace(r.Title); t != "" {
				merged.Title = t
			}
		case "company":
			if c := strings.TrimSpace(r.Company); c != "" {
				merged.Company = c
			}
		case "location":
			merged.Location = r.Location
		case "remoteType":
			merged.RemoteType = r.RemoteType
		case "salaryMin":
			merged.SalaryMin = r.SalaryMin.Value
		case "salaryMax":
			merged.SalaryMax = r.SalaryMax.Value
		case "status":
			merged.Status = r.Status
		case "jobUrl":
			merged.JobURL = r.JobURL
		case "notes":
			merged.Notes = r.Notes
		}
	}

	return merged
}
