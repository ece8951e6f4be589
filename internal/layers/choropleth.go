// Package layers turns encoded data into render primitives grouped in layers.
package layers

import (
	"fmt"
	"strconv"

	"github.com/jengzang/geomap/internal/encoder"
	"github.com/jengzang/geomap/internal/models"
)

// ChoroplethStyle controls the look of a choropleth layer
type ChoroplethStyle struct {
	Name        string
	FillOpacity float64 // Defaults to 0.7
	LineOpacity float64 // Defaults to 0.2
	LineColor   string  // Defaults to black
	NoDataColor string  // Defaults to encoder.NoDataColor
}

func (s ChoroplethStyle) withDefaults() ChoroplethStyle {
	if s.Name == "" {
		s.Name = "choropleth"
	}
	if s.FillOpacity == 0 {
		s.FillOpacity = 0.7
	}
	if s.LineOpacity == 0 {
		s.LineOpacity = 0.2
	}
	if s.LineColor == "" {
		s.LineColor = "#000000"
	}
	if s.NoDataColor == "" {
		s.NoDataColor = encoder.NoDataColor
	}
	return s
}

// BuildChoropleth emits one filled shape per feature, in feature order.
// A feature takes the bin of the first pair bound to it; features with no
// bound value are filled with the no-data color.
func BuildChoropleth(features []models.Feature, enc *encoder.RegionEncoding, pairs []models.BoundPair, metricField string, style ChoroplethStyle) models.Layer {
	style = style.withDefaults()

	type binding struct {
		value float64
		bin   int
	}
	byKey := make(map[string]binding, len(pairs))
	for i, p := range pairs {
		if !p.Matched() {
			continue
		}
		if _, exists := byKey[p.Feature.Key]; exists {
			continue
		}
		bin := -1
		if enc != nil && i < len(enc.Assignments) {
			bin = enc.Assignments[i]
		}
		if bin < 0 {
			continue
		}
		v, _ := p.Record.Float(metricField)
		byKey[p.Feature.Key] = binding{value: v, bin: bin}
	}

	layer := models.Layer{
		Name:       style.Name,
		Kind:       models.LayerChoropleth,
		Show:       true,
		Primitives: make([]models.Primitive, 0, len(features)),
	}

	for _, f := range features {
		shape := models.FilledShape{
			Key:         f.Key,
			Geometry:    f.Geometry,
			FillColor:   style.NoDataColor,
			LineColor:   style.LineColor,
			FillOpacity: style.FillOpacity,
			LineOpacity: style.LineOpacity,
			Bin:         -1,
			Tooltip:     fmt.Sprintf("%s: no data", f.Key),
		}

		if b, ok := byKey[f.Key]; ok && enc.Mapping != nil && b.bin < len(enc.Mapping.Bins) {
			v := b.value
			shape.Value = &v
			shape.Bin = b.bin
			shape.FillColor = enc.Mapping.Bins[b.bin].Color
			shape.Tooltip = fmt.Sprintf("%s: %s", f.Key, strconv.FormatFloat(v, 'f', -1, 64))
		}

		layer.Primitives = append(layer.Primitives, shape)
	}

	return layer
}

// Legend describes the color scale of an encoding for the map legend
func Legend(title string, enc *encoder.RegionEncoding, noDataColor string) *models.Legend {
	if noDataColor == "" {
		noDataColor = encoder.NoDataColor
	}
	legend := &models.Legend{Title: title, NoDataColor: noDataColor}
	if enc != nil && enc.Mapping != nil {
		legend.Bins = append(legend.Bins, enc.Mapping.Bins...)
	}
	return legend
}
