package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00.123Z", time.Date(2024, 1, 15, 10, 30, 0, 123e6, time.UTC), true},
		{"2024-01-15T10:30:00+02:00", time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"1705314600000", time.UnixMilli(1705314600000), true},
		{"", time.Time{}, false},
		{"next tuesday", time.Time{}, false},
		{"NaN", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want.UnixMilli(), got)
			}
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, now.UnixMilli(), NormalizeTimestamp("garbage", now))
	assert.Equal(t, now.UnixMilli(), NormalizeTimestamp("", now))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli(), NormalizeTimestamp("2024-01-15", now))
}

func TestRawTimestamp_UnmarshalJSON(t *testing.T) {
	var body struct {
		LastUpdated RawTimestamp `json:"lastUpdated"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"lastUpdated": 1705314600000}`), &body))
	assert.Equal(t, RawTimestamp("1705314600000"), body.LastUpdated)

	require.NoError(t, json.Unmarshal([]byte(`{"lastUpdated": "2024-01-15"}`), &body))
	assert.Equal(t, RawTimestamp("2024-01-15"), body.LastUpdated)

	require.NoError(t, json.Unmarshal([]byte(`{"lastUpdated": null}`), &body))
	assert.True(t, body.LastUpdated.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"lastUpdated": true}`), &body))
}

func TestRawTimestamp_Millis(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(42), RawTimestamp("42").Millis(now))
	assert.Equal(t, now.UnixMilli(), RawTimestamp("").Millis(now))
}
