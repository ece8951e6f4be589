package models

import "github.com/paulmach/orb"

// Feature is a named geometry provided by the geometry registry.
// Features are immutable for the lifetime of a pipeline run.
type Feature struct {
	Key        string         `json:"key"`        // Value of the registry's key property
	Geometry   orb.Geometry   `json:"-"`          // Polygon, MultiPolygon or Point
	Properties map[string]any `json:"properties"` // Remaining feature metadata
}

// BoundPair is the result of matching one record to at most one feature
type BoundPair struct {
	Record  Record   `json:"record"`
	Feature *Feature `json:"feature,omitempty"` // nil when the record's key matched nothing
}

// Matched reports whether the pair carries a feature
func (p BoundPair) Matched() bool {
	return p.Feature != nil
}
