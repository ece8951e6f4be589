package encoder

import (
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is used when no palette is configured
const DefaultPalette = "PuBuGn"

// MaxBins is the size of every palette
const MaxBins = 9

// NoDataColor fills regions without a bound value
const NoDataColor = "#d9d9d9"

// ColorBrewer sequential schemes, 9 classes, light to dark
var palettes = map[string][MaxBins]string{
	"PuBuGn":  {"#fff7fb", "#ece2f0", "#d0d1e6", "#a6bddb", "#67a9cf", "#3690c0", "#02818a", "#016c59", "#014636"},
	"YlOrRd":  {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"YlGn":    {"#ffffe5", "#f7fcb9", "#d9f0a3", "#addd8e", "#78c679", "#41ab5d", "#238443", "#006837", "#004529"},
	"YlGnBu":  {"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4", "#1d91c0", "#225ea8", "#253494", "#081d58"},
	"Blues":   {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Greens":  {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"Purples": {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
}

// Palettes returns the names of the known palettes
func Palettes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownPalette reports whether name is a known palette
func KnownPalette(name string) bool {
	_, ok := palettes[name]
	return ok
}

// Colors returns n colors spread evenly across the named palette.
// Colors between palette stops are blended in Lab space.
func Colors(name string, n int) ([]string, error) {
	stops, ok := palettes[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q", name)
	}
	if n < 1 || n > MaxBins {
		return nil, fmt.Errorf("palette size must be between 1 and %d, got %d", MaxBins, n)
	}

	if n == 1 {
		return []string{stops[MaxBins/2]}, nil
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * float64(MaxBins-1) / float64(n-1)
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		if frac < 1e-9 || lo == MaxBins-1 {
			out[i] = stops[lo]
			continue
		}

		c1, err := colorful.Hex(stops[lo])
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %s: %w", stops[lo], err)
		}
		c2, err := colorful.Hex(stops[lo+1])
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %s: %w", stops[lo+1], err)
		}
		out[i] = c1.BlendLab(c2, frac).Clamped().Hex()
	}
	return out, nil
}
