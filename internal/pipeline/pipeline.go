// Package pipeline chains the stages of a map run: load, bind, encode, build
// layers, compose and export. Each stage receives the previous stage's output
// explicitly; nothing is shared between runs except the metrics registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jengzang/geomap/internal/binder"
	"github.com/jengzang/geomap/internal/composer"
	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/encoder"
	"github.com/jengzang/geomap/internal/geometry"
	"github.com/jengzang/geomap/internal/layers"
	"github.com/jengzang/geomap/internal/loader"
	"github.com/jengzang/geomap/internal/logging"
	"github.com/jengzang/geomap/internal/metrics"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/spatial"
)

// Pipeline runs map specs
type Pipeline struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a pipeline. m may be nil.
func New(logger zerolog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		logger:  logging.Component(logger, "pipeline"),
		metrics: m,
	}
}

// Run executes every stage and exports the map to spec.Output
func (p *Pipeline) Run(ctx context.Context, spec config.MapSpec) (*Report, error) {
	return p.Execute(ctx, uuid.NewString(), spec, true)
}

// Validate executes every stage except export
func (p *Pipeline) Validate(ctx context.Context, spec config.MapSpec) (*Report, error) {
	return p.Execute(ctx, uuid.NewString(), spec, false)
}

// run holds the stage outputs of a single run
type run struct {
	spec     config.MapSpec
	log      zerolog.Logger
	report   *Report
	registry *geometry.Registry
	records  []models.Record
	pairs    []models.BoundPair
	encoding *encoder.RegionEncoding
	points   []models.PointObservation
}

// Execute runs spec under the given run id, exporting only when export is set
func (p *Pipeline) Execute(ctx context.Context, id string, spec config.MapSpec, export bool) (*Report, error) {
	start := time.Now()

	if err := spec.Validate(); err != nil {
		p.metrics.IncFailed("config")
		return nil, err
	}

	r := &run{
		spec:   spec,
		log:    p.logger.With().Str("map", spec.Name).Str("run_id", id).Logger(),
		report: &Report{RunID: id, Map: spec.Name},
	}

	stages := []func(context.Context, *run) error{
		p.loadGeometry,
		p.loadRecords,
		p.bindRegions,
		p.encodePoints,
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stage(ctx, r); err != nil {
			p.metrics.IncFailed(failureKind(err))
			r.log.Error().Err(err).Msg("Run aborted")
			return nil, err
		}
	}

	m, err := p.compose(r)
	if err != nil {
		p.metrics.IncFailed("compose")
		return nil, err
	}

	if export {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := composer.Export(m, spec.Output); err != nil {
			p.metrics.IncFailed(failureKind(err))
			r.log.Error().Err(err).Msg("Export failed")
			return nil, err
		}
		r.report.Output = spec.Output
		r.report.Exported = true
		p.metrics.IncExported()
	}

	r.report.Duration = time.Since(start)
	p.metrics.ObserveRunDuration(r.report.Duration)

	if export {
		r.log.Info().Str("output", spec.Output).Dur("duration", r.report.Duration).Msgf("Map generation for %s successful", spec.Name)
	} else {
		r.log.Info().Dur("duration", r.report.Duration).Msg("Map validated")
	}
	return r.report, nil
}

func (p *Pipeline) loadGeometry(_ context.Context, r *run) error {
	if !r.spec.RegionMode() {
		return nil
	}

	reg, err := geometry.Open(r.spec.Geometry, r.spec.GeometryKey)
	if err != nil {
		return err
	}
	if dups := reg.Duplicates(); len(dups) > 0 {
		r.log.Warn().Strs("keys", dups).Msg("Duplicate feature keys, first feature wins")
	}
	r.log.Debug().Int("features", reg.Len()).Str("source", reg.Source()).Msg("Geometry loaded")
	r.registry = reg
	return nil
}

func (p *Pipeline) loadRecords(ctx context.Context, r *run) error {
	spec := r.spec
	opts := loader.Options{
		DateLayouts:      spec.DateLayouts,
		FailOnParseError: spec.StrictParse,
		Drop:             loader.DropPolicy{Indices: spec.RowDrop.Indices},
	}
	if spec.RowDrop.Field != "" {
		opts.Drop.Predicate = loader.FieldEquals{Field: spec.RowDrop.Field, Values: spec.RowDrop.Equals}
	}
	if spec.DateField != "" {
		opts.DateFields = []string{spec.DateField}
	}
	if spec.RegionMode() {
		opts.NumericFields = []string{spec.MetricField}
		opts.Required = []string{spec.JoinKeyField, spec.MetricField}
	}

	res, err := loader.Load(ctx, sourceFor(spec.Data), opts)
	if err != nil {
		return err
	}

	r.records = res.Records
	r.report.Records = RecordStats{
		Read:             res.Read,
		Dropped:          res.Dropped,
		MissingRequired:  res.MissingRequired,
		Loaded:           len(res.Records),
		ParseErrors:      len(res.ParseErrors),
		ParseErrorSample: parseErrorSample(res.ParseErrors),
	}
	p.metrics.AddLoaded(len(res.Records), res.Dropped)

	if len(res.ParseErrors) > 0 {
		r.log.Warn().Int("count", len(res.ParseErrors)).Msg("Fields could not be coerced, raw values kept")
	}
	r.log.Info().
		Int("read", res.Read).
		Int("dropped", res.Dropped).
		Int("missing_required", res.MissingRequired).
		Int("loaded", len(res.Records)).
		Msg("Records loaded")
	return nil
}

func sourceFor(data config.DataSource) loader.Source {
	if data.Format == config.FormatSQLite {
		return loader.SQLiteSource{Path: data.Path, Table: data.Table, Query: data.Query}
	}
	src := loader.CSVSource{Path: data.Path}
	if data.Delimiter != "" {
		src.Comma = []rune(data.Delimiter)[0]
	}
	return src
}

func (p *Pipeline) bindRegions(_ context.Context, r *run) error {
	if !r.spec.RegionMode() {
		return nil
	}

	res := binder.Bind(r.records, r.registry, r.spec.JoinKeyField)
	r.pairs = res.Pairs

	stats := &BindingStats{
		Matched:       res.Matched,
		Unmatched:     res.Unmatched(),
		DuplicateKeys: res.DuplicateKeys,
	}
	if res.Mismatch != nil {
		stats.UnmatchedKeys = res.Mismatch.Keys
		p.metrics.AddUnmatched(res.Mismatch.Count)
		r.log.Warn().Err(res.Mismatch).Msg("Unmatched keys rendered as no data")
	}

	enc, err := encoder.EncodeRegions(res.Pairs, r.spec.MetricField, encoder.RegionOptions{
		Bins:    r.spec.ColorBinCount,
		Scheme:  r.spec.BinScheme,
		Palette: r.spec.Palette,
	})
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}
	stats.NoValue = enc.Excluded
	r.encoding = enc
	r.report.Binding = stats
	r.report.Bins = enc.Mapping.Bins

	r.log.Info().Int("matched", res.Matched).Int("bins", len(enc.Mapping.Bins)).Msg("Regions bound")
	return nil
}

func (p *Pipeline) encodePoints(_ context.Context, r *run) error {
	if !r.spec.PointMode() {
		return nil
	}

	var locator encoder.Locator
	if r.registry != nil {
		locator = r.registry
	}

	res := encoder.EncodePoints(r.records, encoder.PointFields{
		Lat:    r.spec.LatField,
		Lon:    r.spec.LonField,
		Weight: r.spec.WeightField,
		Label:  r.spec.LabelField,
	}, locator)
	r.points = res.Points

	r.report.Points = &PointStats{
		Total:      res.Total,
		Retained:   len(res.Points),
		Missing:    res.Missing,
		OutOfRange: res.OutOfRange,
		BadWeight:  res.BadWeight,
		Located:    res.Located,
	}
	p.metrics.AddPointsSkipped("missing", res.Missing)
	p.metrics.AddPointsSkipped("out_of_range", res.OutOfRange)

	if res.Skipped() > 0 {
		r.log.Warn().Int("missing", res.Missing).Int("out_of_range", res.OutOfRange).Msg("Point records skipped")
	}
	return nil
}

// compose builds the layers in configured order and assembles the map
func (p *Pipeline) compose(r *run) (*models.Map, error) {
	spec := r.spec
	center, zoom := r.canvas()
	r.report.Center = center
	r.report.Zoom = zoom

	c := composer.New(center, zoom, spec.TilesStyle)
	if err := c.SetTitle(spec.Title); err != nil {
		return nil, err
	}

	for _, kind := range spec.Layers {
		var layer models.Layer
		switch models.LayerKind(kind) {
		case models.LayerChoropleth:
			layer = layers.BuildChoropleth(r.registry.Features(), r.encoding, r.pairs, spec.MetricField, layers.ChoroplethStyle{
				FillOpacity: spec.FillOpacity,
				LineOpacity: spec.LineOpacity,
			})
			title := spec.LegendName
			if title == "" {
				title = spec.MetricField
			}
			if err := c.SetLegend(layers.Legend(title, r.encoding, "")); err != nil {
				return nil, err
			}
		case models.LayerMarkers:
			layer = layers.BuildMarkers(r.points, layers.SubsetPolicy{Limit: spec.MarkerLimit}, layers.MarkerStyle{
				RadiusMeters: spec.MarkerRadius,
			})
		case models.LayerHeat:
			subset := layers.Unlimited
			if spec.HeatLimit > 0 {
				subset = layers.SubsetPolicy{Limit: spec.HeatLimit}
			}
			layer = layers.BuildHeat(r.points, layers.HeatOptions{
				Radius:        spec.HeatRadius,
				Subset:        subset,
				CellPrecision: spec.HeatCellPrecision,
			})
		default:
			return nil, fmt.Errorf("unknown layer %q", kind)
		}

		if layer.Truncated > 0 {
			r.log.Info().Str("layer", layer.Name).Int("rendered", len(layer.Primitives)).Int("truncated", layer.Truncated).Msg("Layer subset applied")
		}
		if err := c.AddLayer(layer); err != nil {
			return nil, err
		}
		r.report.Layers = append(r.report.Layers, summarizeLayer(layer))
	}

	for _, ctl := range spec.Controls {
		if err := c.AddControl(models.Control(ctl)); err != nil {
			return nil, err
		}
	}

	return c.Compose(), nil
}

// canvas picks the map center and zoom: configured values first, then the
// geometry bounds, then the bounding box of the points
func (r *run) canvas() (models.Location, int) {
	var center models.Location
	fitted := 2

	switch {
	case len(r.spec.BaseLocation) == 2:
		center = models.Location{Lat: r.spec.BaseLocation[0], Lon: r.spec.BaseLocation[1]}
		fitted = spatial.DefaultPointZoom
	case r.registry != nil:
		b := r.registry.Bounds()
		c := b.Center()
		center = models.Location{Lat: c.Lat(), Lon: c.Lon()}
		fitted = spatial.FitZoom(b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	case len(r.points) > 0:
		pts := make([]spatial.Point, len(r.points))
		for i, o := range r.points {
			pts[i] = spatial.Point{Lat: o.Lat, Lon: o.Lon}
		}
		minLat, minLon, maxLat, maxLon := spatial.BoundingBox(pts)
		center = models.Location{Lat: (minLat + maxLat) / 2, Lon: (minLon + maxLon) / 2}
		fitted = spatial.FitZoom(minLat, minLon, maxLat, maxLon)
	}

	if r.spec.ZoomLevel != nil {
		return center, *r.spec.ZoomLevel
	}
	return center, fitted
}

// failureKind classifies a fatal error for metrics
func failureKind(err error) string {
	var (
		parseErr     *models.ParseError
		integrityErr *models.IntegrityError
		geometryErr  *models.GeometrySourceError
		exportErr    *models.ExportError
	)
	switch {
	case errors.As(err, &integrityErr):
		return "integrity"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &geometryErr):
		return "geometry"
	case errors.As(err, &exportErr):
		return "export"
	default:
		return "load"
	}
}
