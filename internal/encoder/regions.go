// Package encoder derives visual encodings from bound data: color bins for
// regions and validated point observations for marker and heat layers.
package encoder

import (
	"fmt"

	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/stats"
)

// Binning schemes
const (
	SchemeQuantile   = "quantile"    // Boundaries at evenly spaced quantiles of the observed values
	SchemeEqualWidth = "equal_width" // Boundaries evenly spaced between min and max
)

// DefaultBins is the bin count used when none is configured
const DefaultBins = 6

// RegionOptions configures region binning
type RegionOptions struct {
	Bins    int    // Requested bin count, 1-9; 0 means DefaultBins
	Scheme  string // SchemeQuantile (default) or SchemeEqualWidth
	Palette string // Palette name, DefaultPalette when empty
}

func (o RegionOptions) normalize() (RegionOptions, error) {
	if o.Bins == 0 {
		o.Bins = DefaultBins
	}
	if o.Bins < 1 || o.Bins > MaxBins {
		return o, fmt.Errorf("bin count must be between 1 and %d, got %d", MaxBins, o.Bins)
	}
	if o.Scheme == "" {
		o.Scheme = SchemeQuantile
	}
	if o.Scheme != SchemeQuantile && o.Scheme != SchemeEqualWidth {
		return o, fmt.Errorf("unknown bin scheme %q", o.Scheme)
	}
	if o.Palette == "" {
		o.Palette = DefaultPalette
	}
	if !KnownPalette(o.Palette) {
		return o, fmt.Errorf("unknown palette %q", o.Palette)
	}
	return o, nil
}

// RegionEncoding is the color bin mapping plus the bin assigned to each pair
type RegionEncoding struct {
	Mapping     *models.ColorBinMapping
	Assignments []int // Bin index per input pair, -1 when unmatched or without a value
	Excluded    int   // Matched pairs whose metric value is missing or not numeric
}

// EncodeRegions bins the metric values of matched pairs.
// Unmatched pairs and pairs without a numeric value never influence the
// bin boundaries and are assigned -1.
func EncodeRegions(pairs []models.BoundPair, metricField string, opts RegionOptions) (*RegionEncoding, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	enc := &RegionEncoding{
		Mapping:     &models.ColorBinMapping{Scheme: opts.Scheme},
		Assignments: make([]int, len(pairs)),
	}

	values := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		if !p.Matched() {
			continue
		}
		v, ok := p.Record.Float(metricField)
		if !ok {
			enc.Excluded++
			continue
		}
		values = append(values, v)
	}

	if len(values) > 0 {
		bins, err := buildBins(values, opts)
		if err != nil {
			return nil, err
		}
		enc.Mapping.Bins = bins
	}

	for i, p := range pairs {
		enc.Assignments[i] = -1
		if !p.Matched() {
			continue
		}
		if v, ok := p.Record.Float(metricField); ok {
			enc.Assignments[i] = enc.Mapping.BinFor(v)
		}
	}

	return enc, nil
}

// buildBins computes the bin boundaries over values and colors them
func buildBins(values []float64, opts RegionOptions) ([]models.ColorBin, error) {
	min, max := stats.MinMax(values)

	var bounds []float64
	if min == max {
		bounds = []float64{min, max}
	} else {
		switch opts.Scheme {
		case SchemeEqualWidth:
			bounds = stats.EvenSteps(min, max, opts.Bins)
		default:
			bounds = stats.EvenQuantiles(values, opts.Bins)
		}
		// Heavily repeated values collapse quantile edges
		bounds = stats.Dedupe(bounds)
	}

	count := len(bounds) - 1
	colors, err := Colors(opts.Palette, count)
	if err != nil {
		return nil, err
	}

	bins := make([]models.ColorBin, count)
	for i := 0; i < count; i++ {
		bins[i] = models.ColorBin{
			Lower: bounds[i],
			Upper: bounds[i+1],
			Color: colors[i],
		}
	}
	bins[count-1].Closed = true
	return bins, nil
}
