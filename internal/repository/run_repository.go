package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/geomap/internal/models"
)

const runColumns = `id, map_name, status, source, output, error, report_json, duration_ms, created_at`

// RunRepository handles database operations for map runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores a run
func (r *RunRepository) Create(ctx context.Context, run *models.MapRun) error {
	query := `INSERT INTO map_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Map, run.Status, run.Source, run.Output, run.Error,
		string(run.Report), run.DurationMs, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a single run. A missing run is (nil, nil).
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.MapRun, error) {
	query := `SELECT ` + runColumns + ` FROM map_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List retrieves runs with filtering and pagination, newest first
func (r *RunRepository) List(ctx context.Context, filter models.RunFilter) ([]models.MapRun, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Map != "" {
		conditions = append(conditions, "map_name = ?")
		args = append(args, filter.Map)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM map_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > 500 {
		filter.PageSize = 500
	}

	query := `SELECT ` + runColumns + ` FROM map_runs` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.MapRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.MapRun, error) {
	var (
		run     models.MapRun
		report  string
		created int64
	)
	err := s.Scan(&run.ID, &run.Map, &run.Status, &run.Source, &run.Output, &run.Error, &report, &run.DurationMs, &created)
	if err != nil {
		return nil, err
	}
	if report != "" {
		run.Report = json.RawMessage(report)
	}
	run.CreatedAt = time.UnixMilli(created).UTC()
	return &run, nil
}
