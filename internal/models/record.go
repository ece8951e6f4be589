package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// groupedNumber matches commas used only as thousands separators
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Record represents one tabular input row after loading
type Record struct {
	Row    int            `json:"row"`    // Zero-based data row index in the source (header excluded)
	Fields map[string]any `json:"fields"` // string, float64 or time.Time
}

// NewRecord creates a record from raw string values
func NewRecord(row int, header []string, values []string) Record {
	fields := make(map[string]any, len(header))
	for i, name := range header {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		fields[name] = v
	}
	return Record{Row: row, Fields: fields}
}

// Value returns the raw value of a field
func (r Record) Value(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Set replaces the value of a field
func (r Record) Set(field string, value any) {
	r.Fields[field] = value
}

// String returns the field formatted as a string.
// String values are returned unchanged, without trimming.
func (r Record) String(field string) string {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return ""
	}
}

// Float returns the field as a float64.
// Raw strings are parsed on the fly; NaN and Inf are reported as absent.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := ParseNumber(val)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Time returns the field as a time.Time if it was coerced to a date
func (r Record) Time(field string) (time.Time, bool) {
	v, ok := r.Fields[field].(time.Time)
	return v, ok
}

// IsNull reports whether a field is missing or blank
func (r Record) IsNull(field string) bool {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return true
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) == ""
	}
	if f, isFloat := v.(float64); isFloat {
		return math.IsNaN(f)
	}
	return false
}

// ParseNumber parses a numeric cell, tolerating thousands separators,
// surrounding whitespace and a trailing percent sign. Any other comma, such as
// a decimal comma, is rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return 0, fmt.Errorf("ambiguous comma in %q", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	return strconv.ParseFloat(s, 64)
}
