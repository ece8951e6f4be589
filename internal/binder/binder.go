// Package binder joins loaded records to registry features by key.
//
// Matching is exact string equality between the record's join-key value and
// the feature key: no trimming, no case folding, no partial matches. The key
// field must carry keys at the same granularity as the feature attribute
// (state against state, not state against county). That is the caller's
// responsibility; nothing here can detect a granularity mismatch.
package binder

import (
	"github.com/jengzang/geomap/internal/models"
)

// MaxMismatchSample caps the number of unmatched keys kept in a BindingMismatch
const MaxMismatchSample = 10

// Lookup resolves a key to a feature. *geometry.Registry implements it.
type Lookup interface {
	Lookup(key string) (models.Feature, bool)
}

// Result is the outcome of a bind
type Result struct {
	Pairs         []models.BoundPair      // One per input record, in input order
	Matched       int                     // Pairs carrying a feature
	Mismatch      *models.BindingMismatch // nil when every record matched
	DuplicateKeys []string                // Keys already bound by an earlier record
}

// Bind pairs each record with the feature whose key equals record[keyField].
// It never fails: unmatched records get a pair without a feature and are
// reported in Result.Mismatch.
func Bind(records []models.Record, registry Lookup, keyField string) Result {
	res := Result{Pairs: make([]models.BoundPair, 0, len(records))}

	seen := make(map[string]bool, len(records))
	sampled := make(map[string]bool)

	for _, rec := range records {
		key := rec.String(keyField)
		pair := models.BoundPair{Record: rec}

		if feature, ok := registry.Lookup(key); ok {
			f := feature
			pair.Feature = &f
			res.Matched++

			if seen[key] {
				res.DuplicateKeys = append(res.DuplicateKeys, key)
			}
			seen[key] = true
		} else {
			if res.Mismatch == nil {
				res.Mismatch = &models.BindingMismatch{KeyField: keyField}
			}
			res.Mismatch.Count++
			if !sampled[key] && len(res.Mismatch.Keys) < MaxMismatchSample {
				sampled[key] = true
				res.Mismatch.Keys = append(res.Mismatch.Keys, key)
				res.Mismatch.Rows = append(res.Mismatch.Rows, rec.Row)
			}
		}

		res.Pairs = append(res.Pairs, pair)
	}

	return res
}

// Unmatched returns the number of pairs without a feature
func (r Result) Unmatched() int {
	return len(r.Pairs) - r.Matched
}
