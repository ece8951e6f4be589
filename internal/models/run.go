package models

import (
	"encoding/json"
	"time"
)

// Run statuses
const (
	RunSucceeded = "succeeded"
	RunValidated = "validated"
	RunFailed    = "failed"
)

// MapRun is the stored record of one pipeline run requested over HTTP or the CLI
type MapRun struct {
	ID         string          `json:"id" db:"id"`
	Map        string          `json:"map" db:"map_name"`
	Status     string          `json:"status" db:"status"`
	Source     string          `json:"source" db:"source"`           // api or cli
	Output     string          `json:"output,omitempty" db:"output"` // Empty unless exported
	Error      string          `json:"error,omitempty" db:"error"`
	Report     json.RawMessage `json:"report,omitempty" db:"report_json"`
	DurationMs int64           `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// RunFilter represents filter parameters for listing runs
type RunFilter struct {
	Map      string `form:"map"`
	Status   string `form:"status"` // succeeded, validated, failed
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
