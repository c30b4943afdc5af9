package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	t.Run("With field", func(t *testing.T) {
		err := &ValidationError{
			Field:   "jobTitle",
			Message: "Job title is required",
		}

		expected := "validation error on field 'jobTitle': Job title is required"
		assert.Equal(t, expected, err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("Without field", func(t *testing.T) {
		err := &ValidationError{
			Message: "input is invalid",
		}

		assert.Equal(t, "validation error: input is invalid", err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("Unwrap returns ErrValidation", func(t *testing.T) {
		err := &ValidationError{Field: "status", Message: "bad"}
		assert.Equal(t, ErrValidation, err.Unwrap())
	})
}

func TestFieldErrors(t *testing.T) {
	t.Run("Empty is nil error", func(t *testing.T) {
		fe := FieldErrors{}
		assert.NoError(t, fe.Err())
	})

	t.Run("First message wins", func(t *testing.T) {
		fe := FieldErrors{}
		fe.Add("salary", "Minimum salary cannot be greater than maximum salary")
		fe.Add("salary", "something else")

		assert.Equal(t, "Minimum salary cannot be greater than maximum salary", fe["salary"])
	})

	t.Run("Message is sorted and unwraps", func(t *testing.T) {
		fe := FieldErrors{}
		fe.Add("jobTitle", "Job title is required")
		fe.Add("company", "Company is required")

		err := fe.Err()
		require.Error(t, err)
		assert.Equal(t, "validation failed: company: Company is required; jobTitle: Job title is required", err.Error())
		assert.True(t, IsValidationError(err))
		assert.True(t, IsValidationError(fmt.Errorf("create job: %w", err)))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Run("With ID", func(t *testing.T) {
		err := &NotFoundError{Resource: "job", ID: "123"}

		assert.Equal(t, "job with ID '123' not found", err.Error())
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Without ID", func(t *testing.T) {
		err := &NotFoundError{Resource: "job"}

		assert.Equal(t, "job not found", err.Error())
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Unwrap returns ErrNotFound", func(t *testing.T) {
		err := &NotFoundError{Resource: "job", ID: "1"}
		assert.Equal(t, ErrNotFound, err.Unwrap())
	})
}

func TestDatabaseError(t *testing.T) {
	t.Run("With cause", func(t *testing.T) {
		cause := errors.New("database is locked")
		err := &DatabaseError{Operation: "create job", Cause: cause}

		assert.Equal(t, "database error during create job: database is locked", err.Error())
		assert.True(t, errors.Is(err, ErrDatabase))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("Without cause", func(t *testing.T) {
		err := &DatabaseError{Operation: "delete job"}

		assert.Equal(t, "database error during delete job", err.Error())
		assert.True(t, errors.Is(err, ErrDatabase))
	})
}

func TestWrapFunctions(t *testing.T) {
	err := WrapValidationError("company", "Company is required")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "company", validationErr.Field)

	err = WrapNotFoundError("job", "42")
	var notFoundErr *NotFoundError
	require.True(t, errors.As(err, &notFoundErr))
	assert.Equal(t, "42", notFoundErr.ID)

	cause := errors.New("disk full")
	err = WrapDatabaseError("update job", cause)
	var dbErr *DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, cause, dbErr.Cause)
}

func TestErrorCheckers(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		isValidation bool
		isNotFound   bool
		isDatabase   bool
	}{
		{"validation", WrapValidationError("f", "m"), true, false, false},
		{"field errors", FieldErrors{"salary": "m"}, true, false, false},
		{"not found", WrapNotFoundError("job", "1"), false, true, false},
		{"database", WrapDatabaseError("op", nil), false, false, true},
		{"wrapped not found", fmt.Errorf("get: %w", WrapNotFoundError("job", "1")), false, true, false},
		{"plain", errors.New("plain"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValidation, IsValidationError(tt.err))
			assert.Equal(t, tt.isNotFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.isDatabase, IsDatabaseError(tt.err))
		})
	}
}

func TestValidationDetails(t *testing.T) {
	details := ValidationDetails(fmt.Errorf("wrapped: %w", FieldErrors{"jobTitle": "Job title is required"}))
	assert.Equal(t, map[string]string{"jobTitle": "Job title is required"}, details)

	details = ValidationDetails(WrapValidationError("status", "Invalid status"))
	assert.Equal(t, map[string]string{"status": "Invalid status"}, details)

	details = ValidationDetails(WrapValidationError("", "bad input"))
	assert.Equal(t, map[string]string{"error": "bad input"}, details)

	assert.Nil(t, ValidationDetails(errors.New("boom")))
}

func TestRequiredFieldError(t *testing.T) {
	err := RequiredFieldError("company")
	assert.Equal(t, "validation error on field 'company': field is required", err.Error())
	assert.True(t, IsValidationError(err))
}

func TestInvalidFieldError(t *testing.T) {
	err := InvalidFieldError("remoteType", "must be one of on-site, hybrid, remote")
	assert.Equal(t, "validation error on field 'remoteType': must be one of on-site, hybrid, remote", err.Error())
}

func TestWrapDatabaseError_RecordsCallerStack(t *testing.T) {
	err := WrapDatabaseError("create job", errors.New("disk full"))

	stack := ErrorStack(fmt.Errorf("handler: %w", err))
	require.NotEmpty(t, stack)
	assert.Contains(t, stack, "errors_test.go")

	assert.Empty(t, ErrorStack(&DatabaseError{Operation: "count jobs"}))
	assert.Empty(t, ErrorStack(WrapNotFoundError("job", "7")))
	assert.NotEmpty(t, ErrorStack(WrapDatabaseError("seed jobs", nil)))
}
