package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyExported is wrapped by ExportError when a sealed map is exported again
var ErrAlreadyExported = errors.New("map already exported")

// ParseError indicates a declared field could not be coerced to its declared type
type ParseError struct {
	Field string
	Row   int
	Value string
	Type  string // "date" or "number"
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %q in field %q as %s", e.Row, e.Value, e.Field, e.Type)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IntegrityError indicates a post-load sanity assertion failed
type IntegrityError struct {
	Check  string // Description of the violated assertion
	Row    int    // First offending source row
	Detail string
}

func (e *IntegrityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("integrity check %q failed at row %d: %s", e.Check, e.Row, e.Detail)
	}
	return fmt.Sprintf("integrity check %q failed at row %d", e.Check, e.Row)
}

// GeometrySourceError indicates the geometry source could not be loaded
type GeometrySourceError struct {
	Source string
	Reason string
	Err    error
}

func (e *GeometrySourceError) Error() string {
	msg := fmt.Sprintf("geometry source %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GeometrySourceError) Unwrap() error { return e.Err }

// BindingMismatch reports records whose join key matched no feature.
// It is non-fatal: unmatched records are rendered as "no data".
type BindingMismatch struct {
	KeyField string
	Count    int
	Keys     []string // Sample of offending key values, first occurrences in input order
	Rows     []int    // Source rows of the sampled keys
}

func (e *BindingMismatch) Error() string {
	return fmt.Sprintf("%d record(s) did not match any feature on %q (sample: %s)",
		e.Count, e.KeyField, strings.Join(quoteAll(e.Keys), ", "))
}

// ExportError indicates the destination could not be written
type ExportError struct {
	Destination string
	Err         error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export map to %s: %v", e.Destination, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
