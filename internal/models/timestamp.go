package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are the textual forms accepted for lastUpdated, tried in order.
// Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts a timestamp string into epoch milliseconds.
// A string of decimal digits is taken as epoch milliseconds already.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// NormalizeTimestamp returns the epoch milliseconds for s, or now when s
// is empty or cannot be parsed.
func NormalizeTimestamp(s string, now time.Time) int64 {
	if ms, ok := ParseTimestamp(s); ok {
		return ms
	}
	return now.UnixMilli()
}

// RawTimestamp holds a submitted lastUpdated value as text.
// It decodes from a JSON number or a JSON string.
type RawTimestamp string

// UnmarshalJSON implements json.Unmarshaler
func (r *RawTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawTimestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("lastUpdated must be a number or a string: %w", err)
	}
	*r = RawTimestamp(n.String())
	return nil
}

// Millis resolves the timestamp against now.
func (r RawTimestamp) Millis(now time.Time) int64 {
	return NormalizeTimestamp(string(r), now)
}

// IsZero reports whether no timestamp was supplied.
func (r RawTimestamp) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}
