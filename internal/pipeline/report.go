package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jengzang/geomap/internal/models"
)

// maxParseErrorSample caps the parse errors listed in a report
const maxParseErrorSample = 10

// Report summarizes one pipeline run. Every excluded row is counted here.
type Report struct {
	RunID    string            `json:"run_id"`
	Map      string            `json:"map"`
	Output   string            `json:"output,omitempty"`
	Exported bool              `json:"exported"`
	Center   models.Location   `json:"center"`
	Zoom     int               `json:"zoom"`
	Records  RecordStats       `json:"records"`
	Binding  *BindingStats     `json:"binding,omitempty"`
	Points   *PointStats       `json:"points,omitempty"`
	Bins     []models.ColorBin `json:"bins,omitempty"`
	Layers   []LayerSummary    `json:"layers"`
	Duration time.Duration     `json:"duration_ns"`
}

// RecordStats describes the load stage
type RecordStats struct {
	Read             int      `json:"read"`
	Dropped          int      `json:"dropped"`
	MissingRequired  int      `json:"missing_required"`
	Loaded           int      `json:"loaded"`
	ParseErrors      int      `json:"parse_errors"`
	ParseErrorSample []string `json:"parse_error_sample,omitempty"`
}

// BindingStats describes the bind and region encoding stages
type BindingStats struct {
	Matched       int      `json:"matched"`
	Unmatched     int      `json:"unmatched"`
	UnmatchedKeys []string `json:"unmatched_keys,omitempty"` // Sample
	DuplicateKeys []string `json:"duplicate_keys,omitempty"`
	NoValue       int      `json:"no_value"` // Matched records without a numeric metric
}

// PointStats describes the point encoding stage
type PointStats struct {
	Total      int `json:"total"`
	Retained   int `json:"retained"`
	Missing    int `json:"missing"`
	OutOfRange int `json:"out_of_range"`
	BadWeight  int `json:"bad_weight"`
	Located    int `json:"located"`
}

// LayerSummary describes one rendered layer
type LayerSummary struct {
	Name       string           `json:"name"`
	Kind       models.LayerKind `json:"kind"`
	Primitives int              `json:"primitives"`
	Truncated  int              `json:"truncated,omitempty"`
}

func summarizeLayer(l models.Layer) LayerSummary {
	return LayerSummary{Name: l.Name, Kind: l.Kind, Primitives: len(l.Primitives), Truncated: l.Truncated}
}

func parseErrorSample(errs []*models.ParseError) []string {
	n := len(errs)
	if n > maxParseErrorSample {
		n = maxParseErrorSample
	}
	out := make([]string, 0, n)
	for _, e := range errs[:n] {
		out = append(out, e.Error())
	}
	return out
}

// Write prints a human readable summary of the run
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Map %s (run %s)\n", r.Map, r.RunID)
	fmt.Fprintf(w, "  records: %d read, %d dropped, %d missing required, %d loaded\n",
		r.Records.Read, r.Records.Dropped, r.Records.MissingRequired, r.Records.Loaded)
	if r.Records.ParseErrors > 0 {
		fmt.Fprintf(w, "  parse errors: %d\n", r.Records.ParseErrors)
		for _, e := range r.Records.ParseErrorSample {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	if b := r.Binding; b != nil {
		fmt.Fprintf(w, "  binding: %d matched, %d unmatched, %d without value\n", b.Matched, b.Unmatched, b.NoValue)
		if len(b.UnmatchedKeys) > 0 {
			fmt.Fprintf(w, "    unmatched keys: %s\n", strings.Join(quote(b.UnmatchedKeys), ", "))
		}
	}
	if p := r.Points; p != nil {
		fmt.Fprintf(w, "  points: %d retained of %d, %d missing, %d out of range, %d bad weight\n",
			p.Retained, p.Total, p.Missing, p.OutOfRange, p.BadWeight)
	}
	for _, l := range r.Layers {
		if l.Truncated > 0 {
			fmt.Fprintf(w, "  layer %s (%s): %d primitives, %d points not rendered\n", l.Name, l.Kind, l.Primitives, l.Truncated)
		} else {
			fmt.Fprintf(w, "  layer %s (%s): %d primitives\n", l.Name, l.Kind, l.Primitives)
		}
	}
	if r.Exported {
		fmt.Fprintf(w, "Map generation for %s successful: %s (%s)\n", r.Map, r.Output, r.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Map %s validated, nothing written (%s)\n", r.Map, r.Duration.Round(time.Millisecond))
	}
}

func quote(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
