package layers

import (
	"github.com/mmcloughlin/geohash"

	"github.com/jengzang/geomap/internal/models"
)

// maxCellPrecision is the longest geohash that fits in 64 bits
const maxCellPrecision = 12

// HeatOptions configures a heat layer
type HeatOptions struct {
	Name          string
	Radius        int          // Blur radius in pixels, defaults to 25
	Blur          int          // Defaults to 15
	Subset        SubsetPolicy // Zero value renders every point
	CellPrecision int          // When > 0, points are summed per geohash cell of this precision
}

func (o HeatOptions) withDefaults() HeatOptions {
	if o.Name == "" {
		o.Name = "heat"
	}
	if o.Radius <= 0 {
		o.Radius = 25
	}
	if o.Blur <= 0 {
		o.Blur = 15
	}
	if o.Subset == (SubsetPolicy{}) {
		o.Subset = Unlimited
	}
	if o.CellPrecision > maxCellPrecision {
		o.CellPrecision = maxCellPrecision
	}
	return o
}

// BuildHeat emits one weighted point per observation. Observations without a
// weight count as 1 and negative weights are clamped to 0. Intensity is the
// weight normalized by the largest weight.
func BuildHeat(points []models.PointObservation, opts HeatOptions) models.Layer {
	opts = opts.withDefaults()
	kept, truncated := opts.Subset.Apply(points)

	samples := make([]models.WeightedPoint, 0, len(kept))
	for _, p := range kept {
		w := p.WeightOr(1)
		if w < 0 {
			w = 0
		}
		samples = append(samples, models.WeightedPoint{Lat: p.Lat, Lon: p.Lon, Weight: w})
	}

	if opts.CellPrecision > 0 {
		samples = aggregateCells(samples, opts.CellPrecision)
	}

	maxWeight := 0.0
	for _, s := range samples {
		if s.Weight > maxWeight {
			maxWeight = s.Weight
		}
	}

	layer := models.Layer{
		Name:       opts.Name,
		Kind:       models.LayerHeat,
		Show:       true,
		Primitives: make([]models.Primitive, 0, len(samples)),
		Options: map[string]any{
			"radius": opts.Radius,
			"blur":   opts.Blur,
		},
		Truncated: truncated,
	}

	for _, s := range samples {
		if maxWeight > 0 {
			s.Intensity = s.Weight / maxWeight
		}
		layer.Primitives = append(layer.Primitives, s)
	}

	return layer
}

// aggregateCells sums weights per geohash cell, placing each sum at the
// cell center. Cells keep the order in which they were first seen.
func aggregateCells(samples []models.WeightedPoint, precision int) []models.WeightedPoint {
	index := make(map[string]int)
	out := make([]models.WeightedPoint, 0)

	for _, s := range samples {
		hash := geohash.EncodeWithPrecision(s.Lat, s.Lon, uint(precision))
		if i, ok := index[hash]; ok {
			out[i].Weight += s.Weight
			continue
		}
		lat, lon := geohash.DecodeCenter(hash)
		index[hash] = len(out)
		out = append(out, models.WeightedPoint{Lat: lat, Lon: lon, Weight: s.Weight})
	}

	return out
}
