package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/logging"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/pipeline"
	"github.com/jengzang/geomap/internal/repository"
)

// ErrInvalidRequest marks map requests rejected before any stage runs
var ErrInvalidRequest = errors.New("invalid map request")

// MapService renders map specs submitted over HTTP and keeps their history
type MapService struct {
	pipeline  *pipeline.Pipeline
	repo      *repository.RunRepository
	outputDir string
	dataDir   string
	logger    zerolog.Logger
}

// NewMapService creates a map service, creating the output directory if needed
func NewMapService(p *pipeline.Pipeline, repo *repository.RunRepository, cfg config.ServerConfig, logger zerolog.Logger) (*MapService, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &MapService{
		pipeline:  p,
		repo:      repo,
		outputDir: cfg.OutputDir,
		dataDir:   cfg.DataDir,
		logger:    logging.Component(logger, "map_service"),
	}, nil
}

// Render runs spec and exports the page into the output directory.
// A failed run is still recorded and returned alongside the error.
func (s *MapService) Render(ctx context.Context, spec config.MapSpec) (*models.MapRun, error) {
	return s.execute(ctx, spec, true)
}

// Validate runs spec without exporting
func (s *MapService) Validate(ctx context.Context, spec config.MapSpec) (*models.MapRun, error) {
	return s.execute(ctx, spec, false)
}

func (s *MapService) execute(ctx context.Context, spec config.MapSpec, export bool) (*models.MapRun, error) {
	id := uuid.NewString()

	spec, err := s.resolve(id, spec)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	report, runErr := s.pipeline.Execute(ctx, id, spec, export)

	run := &models.MapRun{
		ID:         id,
		Map:        spec.Name,
		Source:     "api",
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	switch {
	case runErr != nil:
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	case export:
		run.Status = models.RunSucceeded
		run.Output = report.Output
	default:
		run.Status = models.RunValidated
	}
	if report != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		run.Report = data
	}

	// History is kept even when the request was cancelled
	if err := s.repo.Create(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error().Err(err).Str("run_id", id).Msg("Failed to record run")
	}
	return run, runErr
}

// resolve confines the map spec's input paths to the data directory and its
// output to the output directory
func (s *MapService) resolve(id string, spec config.MapSpec) (config.MapSpec, error) {
	var err error
	if spec.Data.Path, err = s.dataPath(spec.Data.Path); err != nil {
		return spec, err
	}
	if spec.Geometry, err = s.dataPath(spec.Geometry); err != nil {
		return spec, err
	}
	if spec.Name == "" {
		spec.Name = id
	}
	spec.Output = filepath.Join(s.outputDir, id+".html")
	return spec, nil
}

func (s *MapService) dataPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: path %q must be relative to the data directory", ErrInvalidRequest, p)
	}
	return filepath.Join(s.dataDir, p), nil
}

// GetRun retrieves a run by id. A missing run is (nil, nil).
func (s *MapService) GetRun(ctx context.Context, id string) (*models.MapRun, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRuns retrieves runs with filtering and pagination
func (s *MapService) ListRuns(ctx context.Context, filter models.RunFilter) ([]models.MapRun, int64, error) {
	return s.repo.List(ctx, filter)
}

// PagePath returns the exported page of a run, or "" if it has none
func (s *MapService) PagePath(run *models.MapRun) string {
	if run == nil || run.Output == "" {
		return ""
	}
	return filepath.Join(s.outputDir, filepath.Base(run.Output))
}
