package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/pipeline"
	"github.com/jengzang/geomap/internal/repository"
)

// mapFlags describe a single map on the command line, bypassing the config file
type mapFlags struct {
	only []string

	name        string
	output      string
	data        string
	table       string
	geometry    string
	geometryKey string
	joinKey     string
	metric      string
	lat         string
	lon         string
	weight      string
	label       string
	date        string
	layers      []string
	controls    []string
	tiles       string
	palette     string
	bins        int
	zoom        int
	center      []float64
	markerLimit int
	heatLimit   int
	legend      string
	strict      bool
}

func (f *mapFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.only, "only", nil, "render only the named maps from the config")

	fs.StringVar(&f.name, "name", "", "map name")
	fs.StringVar(&f.output, "output", "", "output HTML file")
	fs.StringVar(&f.data, "data", "", "tabular data file (CSV or SQLite); selects single-map mode")
	fs.StringVar(&f.table, "table", "", "SQLite table")
	fs.StringVar(&f.geometry, "geometry", "", "GeoJSON feature collection")
	fs.StringVar(&f.geometryKey, "geometry-key", "", "feature property holding the join key")
	fs.StringVar(&f.joinKey, "join-key", "", "record field joined to the geometry key")
	fs.StringVar(&f.metric, "metric", "", "numeric record field coloured by the choropleth")
	fs.StringVar(&f.lat, "lat", "", "latitude field")
	fs.StringVar(&f.lon, "lon", "", "longitude field")
	fs.StringVar(&f.weight, "weight", "", "heat weight field")
	fs.StringVar(&f.label, "label", "", "marker popup field")
	fs.StringVar(&f.date, "date", "", "date field to coerce")
	fs.StringSliceVar(&f.layers, "layers", nil, "layers in paint order: choropleth, markers, heat")
	fs.StringSliceVar(&f.controls, "controls", nil, "controls: zoom-measure, layer-toggle, scale")
	fs.StringVar(&f.tiles, "tiles", "", "base tiles style")
	fs.StringVar(&f.palette, "palette", "", "choropleth palette")
	fs.IntVar(&f.bins, "bins", 0, "choropleth colour bins")
	fs.IntVar(&f.zoom, "zoom", -1, "initial zoom 0-20, fitted to the data when unset")
	fs.Float64SliceVar(&f.center, "center", nil, "initial center as lat,lon")
	fs.IntVar(&f.markerLimit, "marker-limit", 0, "markers rendered, -1 for all (default 100)")
	fs.IntVar(&f.heatLimit, "heat-limit", 0, "heat points rendered, 0 for all")
	fs.StringVar(&f.legend, "legend", "", "choropleth legend title")
	fs.BoolVar(&f.strict, "strict", false, "abort on the first value that cannot be coerced")
}

func (f *mapFlags) spec() config.MapSpec {
	var zoom *int
	if f.zoom != -1 {
		zoom = &f.zoom
	}
	return config.MapSpec{
		Name:          f.name,
		Output:        f.output,
		Data:          config.DataSource{Path: f.data, Table: f.table},
		Geometry:      f.geometry,
		GeometryKey:   f.geometryKey,
		JoinKeyField:  f.joinKey,
		MetricField:   f.metric,
		LatField:      f.lat,
		LonField:      f.lon,
		WeightField:   f.weight,
		LabelField:    f.label,
		DateField:     f.date,
		StrictParse:   f.strict,
		MarkerLimit:   f.markerLimit,
		HeatLimit:     f.heatLimit,
		ColorBinCount: f.bins,
		Palette:       f.palette,
		BaseLocation:  f.center,
		ZoomLevel:     zoom,
		TilesStyle:    f.tiles,
		Controls:      f.controls,
		Layers:        f.layers,
		LegendName:    f.legend,
	}
}

// specs returns the single map described by flags, or the selected config maps
func (f *mapFlags) specs(cfg *config.Config) ([]config.MapSpec, error) {
	if f.data != "" {
		if len(f.only) > 0 {
			return nil, errors.New("--only cannot be combined with --data")
		}
		spec := f.spec()
		if spec.Name == "" && spec.Output == "" {
			spec.Name = "map"
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		return []config.MapSpec{spec}, nil
	}

	specs, err := cfg.Select(f.only)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, errors.New("no maps configured: pass --config or --data")
	}
	return specs, nil
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		flags   mapFlags
		history bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render maps to HTML",
		Long: `Render every map in the config file, the maps named by --only, or a single
map described by flags (--data and friends). A failing map does not stop the
others; the command fails if any map failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := flags.specs(a.cfg)
			if err != nil {
				return err
			}

			p := pipeline.New(a.logger, a.metrics)
			reports, runErr := p.RunBatch(cmd.Context(), specs, a.cfg.Parallel)
			printReports(cmd.OutOrStdout(), reports)

			if history {
				if err := a.recordHistory(cmd.Context(), reports); err != nil {
					a.logger.Error().Err(err).Msg("Failed to record run history")
				}
			}
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&history, "history", false, "record runs in the server run history database")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var flags mapFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load, bind and encode maps without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := flags.specs(a.cfg)
			if err != nil {
				return err
			}

			p := pipeline.New(a.logger, a.metrics)
			reports, runErr := p.ValidateBatch(cmd.Context(), specs, a.cfg.Parallel)
			printReports(cmd.OutOrStdout(), reports)
			return runErr
		},
	}

	flags.register(cmd)
	return cmd
}

func printReports(w io.Writer, reports []*pipeline.Report) {
	for _, r := range reports {
		if r != nil {
			r.Write(w)
		}
	}
}

// recordHistory stores successful CLI runs next to the API's runs
func (a *app) recordHistory(ctx context.Context, reports []*pipeline.Report) error {
	db, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewRunRepository(db)
	for _, r := range reports {
		if r == nil {
			continue
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		status := models.RunValidated
		if r.Exported {
			status = models.RunSucceeded
		}
		err = repo.Create(ctx, &models.MapRun{
			ID:         r.RunID,
			Map:        r.Map,
			Status:     status,
			Source:     "cli",
			Output:     r.Output,
			Report:     data,
			DurationMs: r.Duration.Milliseconds(),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
