// Package loader ingests tabular records, coerces declared fields and applies
// the row-drop policy.
package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/geomap/internal/models"
)

// Predicate selects records for the row-drop policy
type Predicate interface {
	Match(r models.Record) bool
	String() string
}

// FieldEquals matches records whose field equals one of Values exactly
type FieldEquals struct {
	Field  string
	Values []string
}

// Match implements Predicate
func (p FieldEquals) Match(r models.Record) bool {
	v := r.String(p.Field)
	for _, want := range p.Values {
		if v == want {
			return true
		}
	}
	return false
}

func (p FieldEquals) String() string {
	return fmt.Sprintf("%s not in [%s]", p.Field, strings.Join(p.Values, ", "))
}

// DropPolicy removes rows before any coercion.
// When Indices is set it is the drop mechanism and Predicate only guards the
// result; with Predicate alone, matching rows are dropped.
type DropPolicy struct {
	Indices   []int // Zero-based data row indices (header excluded)
	Predicate Predicate
}

// Options declares coercions and cleaning applied during load
type Options struct {
	DateFields       []string
	DateLayouts      []string // Defaults to DefaultDateLayouts
	NumericFields    []string
	Required         []string // Rows with a blank required field are excluded
	Drop             DropPolicy
	FailOnParseError bool // Abort on the first ParseError instead of collecting it
}

// Result is the outcome of a load
type Result struct {
	Source          string
	Records         []models.Record
	Read            int // Data rows read from the source
	Dropped         int // Rows removed by the drop policy
	MissingRequired int // Rows excluded for a blank or unparseable required field
	ParseErrors     []*models.ParseError
}

// Load reads all rows from src and returns the surviving records in source order
func Load(ctx context.Context, src Source, opts Options) (*Result, error) {
	header, rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.Name(), err)
	}

	if err := checkHeader(header, opts); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.Name(), err)
	}

	res := &Result{Source: src.Name(), Read: len(rows)}

	records := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, models.NewRecord(i, header, row))
	}

	records, err = applyDrop(records, opts.Drop, len(rows))
	if err != nil {
		return nil, err
	}
	res.Dropped = len(rows) - len(records)

	required := make(map[string]bool, len(opts.Required))
	for _, f := range opts.Required {
		required[f] = true
	}

	kept := records[:0]
	for _, rec := range records {
		ok, err := coerce(rec, opts, required, res)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	res.Records = kept

	if err := assertPolicy(res.Records, opts.Drop); err != nil {
		return nil, err
	}

	return res, nil
}

// checkHeader verifies every declared field exists in the header
func checkHeader(header []string, opts Options) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var declared []string
	declared = append(declared, opts.DateFields...)
	declared = append(declared, opts.NumericFields...)
	declared = append(declared, opts.Required...)
	for _, f := range declared {
		if !present[f] {
			return fmt.Errorf("declared field %q not found in header %v", f, header)
		}
	}
	return nil
}

// applyDrop removes rows by index, or by predicate when no indices are given
func applyDrop(records []models.Record, policy DropPolicy, total int) ([]models.Record, error) {
	if len(policy.Indices) > 0 {
		drop := make(map[int]bool, len(policy.Indices))
		for _, idx := range policy.Indices {
			if idx < 0 || idx >= total {
				return nil, &models.IntegrityError{
					Check:  "drop index in range",
					Row:    idx,
					Detail: fmt.Sprintf("source has %d data rows", total),
				}
			}
			drop[idx] = true
		}
		out := make([]models.Record, 0, len(records))
		for _, rec := range records {
			if !drop[rec.Row] {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	if policy.Predicate != nil {
		out := make([]models.Record, 0, len(records))
		for _, rec := range records {
			if !policy.Predicate.Match(rec) {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	return records, nil
}

// assertPolicy fails if any surviving record still satisfies the drop predicate
func assertPolicy(records []models.Record, policy DropPolicy) error {
	if policy.Predicate == nil {
		return nil
	}
	for _, rec := range records {
		if policy.Predicate.Match(rec) {
			return &models.IntegrityError{
				Check:  policy.Predicate.String(),
				Row:    rec.Row,
				Detail: "row should have been dropped",
			}
		}
	}
	return nil
}

// coerce converts declared fields in place and reports whether the record is kept
func coerce(rec models.Record, opts Options, required map[string]bool, res *Result) (bool, error) {
	keep := true

	for _, field := range opts.DateFields {
		raw := rec.String(field)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, err := parseDate(raw, opts.DateLayouts)
		if err != nil {
			perr := &models.ParseError{Field: field, Row: rec.Row, Value: raw, Type: "date", Err: err}
			if opts.FailOnParseError {
				return false, perr
			}
			res.ParseErrors = append(res.ParseErrors, perr)
			if required[field] {
				keep = false
			}
			continue
		}
		rec.Set(field, t)
	}

	for _, field := range opts.NumericFields {
		raw := rec.String(field)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := models.ParseNumber(raw)
		if err != nil {
			perr := &models.ParseError{Field: field, Row: rec.Row, Value: raw, Type: "number", Err: err}
			if opts.FailOnParseError {
				return false, perr
			}
			res.ParseErrors = append(res.ParseErrors, perr)
			if required[field] {
				keep = false
			}
			continue
		}
		rec.Set(field, v)
	}

	fields := make([]string, 0, len(required))
	for f := range required {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if rec.IsNull(f) {
			keep = false
			break
		}
	}

	if !keep {
		res.MissingRequired++
	}
	return keep, nil
}
