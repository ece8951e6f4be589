package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jengzang/geomap/internal/composer"
	"github.com/jengzang/geomap/internal/encoder"
	"github.com/jengzang/geomap/internal/layers"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/spatial"
)

// Data source formats
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// DataSource locates the tabular input of a map
type DataSource struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
	// Inferred from the extension when empty
	Format    string `mapstructure:"format" yaml:"format,omitempty" json:"format,omitempty"`
	Table     string `mapstructure:"table" yaml:"table,omitempty" json:"table,omitempty"`
	Query     string `mapstructure:"query" yaml:"query,omitempty" json:"query,omitempty"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
}

// RowDrop removes rows before any other processing.
// Field/Equals doubles as the integrity check when Indices are given.
type RowDrop struct {
	Indices []int    `mapstructure:"indices" yaml:"indices,omitempty" json:"indices,omitempty"`
	Field   string   `mapstructure:"field" yaml:"field,omitempty" json:"field,omitempty"`
	Equals  []string `mapstructure:"equals" yaml:"equals,omitempty" json:"equals,omitempty"`
}

// MapSpec describes one map to render
type MapSpec struct {
	Name   string     `mapstructure:"name" yaml:"name" json:"name"`
	Title  string     `mapstructure:"title" yaml:"title,omitempty" json:"title,omitempty"`
	Output string     `mapstructure:"output" yaml:"output" json:"output"`
	Data   DataSource `mapstructure:"data" yaml:"data" json:"data"`

	// Region mode
	Geometry     string `mapstructure:"geometry" yaml:"geometry,omitempty" json:"geometry,omitempty"`
	GeometryKey  string `mapstructure:"geometry_key" yaml:"geometry_key,omitempty" json:"geometry_key,omitempty"`
	JoinKeyField string `mapstructure:"join_key_field" yaml:"join_key_field,omitempty" json:"join_key_field,omitempty"`
	MetricField  string `mapstructure:"metric_field" yaml:"metric_field,omitempty" json:"metric_field,omitempty"`

	// Point mode
	LatField    string `mapstructure:"lat_field" yaml:"lat_field,omitempty" json:"lat_field,omitempty"`
	LonField    string `mapstructure:"lon_field" yaml:"lon_field,omitempty" json:"lon_field,omitempty"`
	WeightField string `mapstructure:"weight_field" yaml:"weight_field,omitempty" json:"weight_field,omitempty"`
	LabelField  string `mapstructure:"label_field" yaml:"label_field,omitempty" json:"label_field,omitempty"`

	DateField   string   `mapstructure:"date_field" yaml:"date_field,omitempty" json:"date_field,omitempty"`
	DateLayouts []string `mapstructure:"date_layouts" yaml:"date_layouts,omitempty" json:"date_layouts,omitempty"`
	RowDrop     RowDrop  `mapstructure:"row_drop" yaml:"row_drop,omitempty" json:"row_drop,omitempty"`
	StrictParse bool     `mapstructure:"strict_parse" yaml:"strict_parse,omitempty" json:"strict_parse,omitempty"`

	MarkerLimit       int     `mapstructure:"marker_limit" yaml:"marker_limit" json:"marker_limit"`                                          // 0 means 100, -1 unlimited
	HeatLimit         int     `mapstructure:"heat_limit" yaml:"heat_limit,omitempty" json:"heat_limit,omitempty"`                            // 0 means unlimited
	HeatCellPrecision int     `mapstructure:"heat_cell_precision" yaml:"heat_cell_precision,omitempty" json:"heat_cell_precision,omitempty"` // Geohash length, 0 disables
	ColorBinCount     int     `mapstructure:"color_bin_count" yaml:"color_bin_count" json:"color_bin_count"`
	BinScheme         string  `mapstructure:"bin_scheme" yaml:"bin_scheme" json:"bin_scheme"`
	Palette           string  `mapstructure:"palette" yaml:"palette" json:"palette"`
	FillOpacity       float64 `mapstructure:"fill_opacity" yaml:"fill_opacity" json:"fill_opacity"`
	LineOpacity       float64 `mapstructure:"line_opacity" yaml:"line_opacity" json:"line_opacity"`
	MarkerRadius      float64 `mapstructure:"marker_radius" yaml:"marker_radius" json:"marker_radius"` // Meters
	HeatRadius        int     `mapstructure:"heat_radius" yaml:"heat_radius" json:"heat_radius"`

	BaseLocation []float64 `mapstructure:"base_location" yaml:"base_location,omitempty" json:"base_location,omitempty"` // [lat, lon], derived when empty
	ZoomLevel    *int      `mapstructure:"zoom_level" yaml:"zoom_level,omitempty" json:"zoom_level,omitempty"`          // Fitted to the data when unset
	TilesStyle   string    `mapstructure:"tiles_style" yaml:"tiles_style" json:"tiles_style"`
	Controls     []string  `mapstructure:"controls" yaml:"controls" json:"controls"`
	Layers       []string  `mapstructure:"layers" yaml:"layers" json:"layers"` // Paint order
	LegendName   string    `mapstructure:"legend_name" yaml:"legend_name,omitempty" json:"legend_name,omitempty"`
}

// RegionMode reports whether the map joins records to geometry
func (m *MapSpec) RegionMode() bool {
	return m.JoinKeyField != ""
}

// PointMode reports whether the map reads coordinates from records
func (m *MapSpec) PointMode() bool {
	return m.LatField != "" || m.LonField != ""
}

// HasLayer reports whether kind is among the configured layers
func (m *MapSpec) HasLayer(kind models.LayerKind) bool {
	for _, l := range m.Layers {
		if l == string(kind) {
			return true
		}
	}
	return false
}

// Validate fills defaults and checks the map spec for structural errors
func (m *MapSpec) Validate() error {
	if m.Output == "" && m.Name == "" {
		return errors.New("map needs a name or an output path")
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(m.Output), filepath.Ext(m.Output))
	}
	if m.Output == "" {
		m.Output = m.Name + ".html"
	}
	if m.Title == "" {
		m.Title = m.Name
	}

	if err := m.validateData(); err != nil {
		return fmt.Errorf("map %q: %w", m.Name, err)
	}
	if err := m.validateMode(); err != nil {
		return fmt.Errorf("map %q: %w", m.Name, err)
	}
	if err := m.validateEncoding(); err != nil {
		return fmt.Errorf("map %q: %w", m.Name, err)
	}
	if err := m.validateCanvas(); err != nil {
		return fmt.Errorf("map %q: %w", m.Name, err)
	}
	return nil
}

func (m *MapSpec) validateData() error {
	if m.Data.Path == "" {
		return errors.New("data.path is required")
	}
	if m.Data.Format == "" {
		switch strings.ToLower(filepath.Ext(m.Data.Path)) {
		case ".db", ".sqlite", ".sqlite3":
			m.Data.Format = FormatSQLite
		default:
			m.Data.Format = FormatCSV
		}
	}
	switch m.Data.Format {
	case FormatCSV:
		if len([]rune(m.Data.Delimiter)) > 1 {
			return fmt.Errorf("data.delimiter must be a single character, got %q", m.Data.Delimiter)
		}
	case FormatSQLite:
		if m.Data.Table == "" && m.Data.Query == "" {
			return errors.New("sqlite data needs data.table or data.query")
		}
	default:
		return fmt.Errorf("unknown data.format %q", m.Data.Format)
	}

	for _, idx := range m.RowDrop.Indices {
		if idx < 0 {
			return fmt.Errorf("row_drop.indices must be non-negative, got %d", idx)
		}
	}
	if (m.RowDrop.Field == "") != (len(m.RowDrop.Equals) == 0) {
		return errors.New("row_drop.field and row_drop.equals must be set together")
	}
	return nil
}

func (m *MapSpec) validateMode() error {
	if !m.RegionMode() && !m.PointMode() {
		return errors.New("set join_key_field for a region map or lat_field/lon_field for a point map")
	}

	if m.RegionMode() {
		switch {
		case m.Geometry == "":
			return errors.New("region maps need geometry")
		case m.GeometryKey == "":
			return errors.New("region maps need geometry_key")
		case m.MetricField == "":
			return errors.New("region maps need metric_field")
		}
	}
	if m.PointMode() && (m.LatField == "" || m.LonField == "") {
		return errors.New("point maps need both lat_field and lon_field")
	}

	if len(m.Layers) == 0 {
		if m.RegionMode() {
			m.Layers = append(m.Layers, string(models.LayerChoropleth))
		}
		if m.PointMode() {
			m.Layers = append(m.Layers, string(models.LayerMarkers))
		}
	}

	seen := make(map[string]bool, len(m.Layers))
	for _, l := range m.Layers {
		if seen[l] {
			return fmt.Errorf("layer %q listed twice", l)
		}
		seen[l] = true

		switch models.LayerKind(l) {
		case models.LayerChoropleth:
			if !m.RegionMode() {
				return errors.New("choropleth layer needs join_key_field")
			}
		case models.LayerMarkers, models.LayerHeat:
			if !m.PointMode() {
				return fmt.Errorf("%s layer needs lat_field and lon_field", l)
			}
		default:
			return fmt.Errorf("unknown layer %q", l)
		}
	}
	return nil
}

func (m *MapSpec) validateEncoding() error {
	switch {
	case m.MarkerLimit == 0:
		m.MarkerLimit = layers.DefaultMarkerLimit
	case m.MarkerLimit < -1:
		return fmt.Errorf("marker_limit must be -1 (unlimited) or positive, got %d", m.MarkerLimit)
	}
	if m.HeatLimit < 0 {
		m.HeatLimit = 0
	}
	if m.HeatCellPrecision < 0 || m.HeatCellPrecision > 12 {
		return fmt.Errorf("heat_cell_precision must be between 0 and 12, got %d", m.HeatCellPrecision)
	}

	if m.ColorBinCount == 0 {
		m.ColorBinCount = encoder.DefaultBins
	}
	if m.ColorBinCount < 1 || m.ColorBinCount > encoder.MaxBins {
		return fmt.Errorf("color_bin_count must be between 1 and %d, got %d", encoder.MaxBins, m.ColorBinCount)
	}
	if m.BinScheme == "" {
		m.BinScheme = encoder.SchemeQuantile
	}
	if m.BinScheme != encoder.SchemeQuantile && m.BinScheme != encoder.SchemeEqualWidth {
		return fmt.Errorf("unknown bin_scheme %q", m.BinScheme)
	}
	if m.Palette == "" {
		m.Palette = encoder.DefaultPalette
	}
	if !encoder.KnownPalette(m.Palette) {
		return fmt.Errorf("unknown palette %q (known: %s)", m.Palette, strings.Join(encoder.Palettes(), ", "))
	}

	if m.FillOpacity == 0 {
		m.FillOpacity = 0.7
	}
	if m.LineOpacity == 0 {
		m.LineOpacity = 0.2
	}
	if m.FillOpacity < 0 || m.FillOpacity > 1 || m.LineOpacity < 0 || m.LineOpacity > 1 {
		return errors.New("fill_opacity and line_opacity must be between 0 and 1")
	}
	if m.MarkerRadius <= 0 {
		m.MarkerRadius = 500
	}
	if m.HeatRadius <= 0 {
		m.HeatRadius = 25
	}
	return nil
}

func (m *MapSpec) validateCanvas() error {
	if len(m.BaseLocation) != 0 {
		if len(m.BaseLocation) != 2 {
			return fmt.Errorf("base_location must be [lat, lon], got %v", m.BaseLocation)
		}
		if !spatial.ValidCoordinate(m.BaseLocation[0], m.BaseLocation[1]) {
			return fmt.Errorf("base_location %v is out of range", m.BaseLocation)
		}
	}
	if m.ZoomLevel != nil && (*m.ZoomLevel < 0 || *m.ZoomLevel > 20) {
		return fmt.Errorf("zoom_level must be between 0 and 20, got %d", *m.ZoomLevel)
	}

	tiles, err := composer.ResolveTiles(m.TilesStyle)
	if err != nil {
		return err
	}
	m.TilesStyle = tiles.Name

	if m.Controls == nil {
		m.Controls = []string{string(models.ControlZoomMeasure), string(models.ControlLayerToggle)}
	}
	for _, c := range m.Controls {
		if !models.KnownControl(c) {
			return fmt.Errorf("unknown control %q", c)
		}
	}
	return nil
}
