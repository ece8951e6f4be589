// Package geometry provides the read-only registry of named features that
// tabular records are bound to.
//
// The registry is opaque to the rest of the pipeline: it hands out features
// and their keys, and answers exact key lookups. It performs no join logic.
package geometry

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/jengzang/geomap/internal/models"
)

// Registry holds the features of one geometry source
type Registry struct {
	source      string
	keyProperty string
	features    []models.Feature
	byKey       map[string]int
	duplicates  []string
	bound       orb.Bound
	rtree       *rtreego.Rtree // Spatial index over feature bounds
}

// Open reads a GeoJSON FeatureCollection from path.
// keyProperty names the feature property holding the region key.
func Open(path, keyProperty string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.GeometrySourceError{Source: path, Reason: "failed to read file", Err: err}
	}
	return parse(path, data, keyProperty)
}

// Parse builds a registry from GeoJSON bytes
func Parse(data []byte, keyProperty string) (*Registry, error) {
	return parse("<inline>", data, keyProperty)
}

func parse(source string, data []byte, keyProperty string) (*Registry, error) {
	if keyProperty == "" {
		return nil, &models.GeometrySourceError{Source: source, Reason: "no key property configured"}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &models.GeometrySourceError{Source: source, Reason: "malformed GeoJSON", Err: err}
	}

	features := make([]models.Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, &models.GeometrySourceError{
				Source: source,
				Reason: fmt.Sprintf("feature %d has no geometry", i),
			}
		}
		key, ok := keyString(f.Properties[keyProperty])
		if !ok {
			return nil, &models.GeometrySourceError{
				Source: source,
				Reason: fmt.Sprintf("feature %d has no %q property", i, keyProperty),
			}
		}
		features = append(features, models.Feature{
			Key:        key,
			Geometry:   f.Geometry,
			Properties: f.Properties.Clone(),
		})
	}

	reg, err := New(features)
	if err != nil {
		return nil, &models.GeometrySourceError{Source: source, Reason: "invalid feature set", Err: err}
	}
	reg.source = source
	reg.keyProperty = keyProperty
	return reg, nil
}

// New builds a registry from already-decoded features.
// When several features share a key the first one wins.
func New(features []models.Feature) (*Registry, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no features")
	}

	r := &Registry{
		source:   "<memory>",
		features: make([]models.Feature, len(features)),
		byKey:    make(map[string]int, len(features)),
		rtree:    rtreego.NewTree(2, 25, 50),
	}
	copy(r.features, features)

	for i, f := range r.features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %q has no geometry", f.Key)
		}
		if _, exists := r.byKey[f.Key]; exists {
			r.duplicates = append(r.duplicates, f.Key)
		} else {
			r.byKey[f.Key] = i
		}

		b := f.Geometry.Bound()
		if i == 0 {
			r.bound = b
		} else {
			r.bound = r.bound.Union(b)
		}
		r.rtree.Insert(&indexedFeature{idx: i, bound: b})
	}

	return r, nil
}

// Source returns where the registry was loaded from
func (r *Registry) Source() string {
	return r.source
}

// Len returns the number of features
func (r *Registry) Len() int {
	return len(r.features)
}

// Features returns the features in source order
func (r *Registry) Features() []models.Feature {
	out := make([]models.Feature, len(r.features))
	copy(out, r.features)
	return out
}

// KeyOf returns the region key of a feature
func (r *Registry) KeyOf(f models.Feature) string {
	return f.Key
}

// Lookup finds the feature whose key equals key exactly
func (r *Registry) Lookup(key string) (models.Feature, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return models.Feature{}, false
	}
	return r.features[idx], true
}

// Duplicates returns keys that appeared on more than one feature
func (r *Registry) Duplicates() []string {
	return append([]string(nil), r.duplicates...)
}

// Bounds returns the union of all feature bounds
func (r *Registry) Bounds() orb.Bound {
	return r.bound
}

// Locate returns the first feature, in source order, whose geometry contains
// the point. Only polygonal features can contain points.
func (r *Registry) Locate(lat, lon float64) (models.Feature, bool) {
	pt := orb.Point{lon, lat}

	candidates := r.rtree.SearchIntersect(rtreego.Point{lon, lat}.ToRect(1e-9))
	idxs := make([]int, 0, len(candidates))
	for _, c := range candidates {
		idxs = append(idxs, c.(*indexedFeature).idx)
	}
	sort.Ints(idxs)

	for _, idx := range idxs {
		if contains(r.features[idx].Geometry, pt) {
			return r.features[idx], true
		}
	}
	return models.Feature{}, false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	case orb.Bound:
		return geom.Contains(pt)
	default:
		return false
	}
}

// keyString converts a key property value to its string form
func keyString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}

// indexedFeature adapts a feature's bound to the rtreego.Spatial interface
type indexedFeature struct {
	idx   int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial
func (f *indexedFeature) Bounds() rtreego.Rect {
	point := rtreego.Point{f.bound.Min.Lon(), f.bound.Min.Lat()}

	// R-tree requires non-zero dimensions, point features get a small epsilon
	const epsilon = 0.0001
	lonLength := f.bound.Max.Lon() - f.bound.Min.Lon()
	latLength := f.bound.Max.Lat() - f.bound.Min.Lat()
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{lonLength, latLength})
	return rect
}
