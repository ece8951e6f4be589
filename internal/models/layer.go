package models

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerKind identifies how a layer is drawn
type LayerKind string

const (
	LayerChoropleth LayerKind = "choropleth"
	LayerMarkers    LayerKind = "markers"
	LayerHeat       LayerKind = "heat"
)

// Primitive is a single render element of a layer
type Primitive interface {
	PrimitiveType() string
}

// Layer is a named, independently toggleable visual unit
type Layer struct {
	Name       string         `json:"name"`
	Kind       LayerKind      `json:"kind"`
	Show       bool           `json:"show"`                // Visible when the map opens
	Primitives []Primitive    `json:"primitives"`
	Options    map[string]any `json:"options,omitempty"`   // Renderer hints such as heat radius
	Truncated  int            `json:"truncated,omitempty"` // Observations left out by subsetting
}

// FilledShape is a region filled with the color of its bin
type FilledShape struct {
	Key         string       `json:"key"`
	Geometry    orb.Geometry `json:"-"`
	FillColor   string       `json:"fill_color"`
	LineColor   string       `json:"line_color"`
	FillOpacity float64      `json:"fill_opacity"`
	LineOpacity float64      `json:"line_opacity"`
	Value       *float64     `json:"value,omitempty"`
	Bin         int          `json:"bin"` // -1 for no data
	Tooltip     string       `json:"tooltip,omitempty"`
}

// PrimitiveType implements Primitive
func (FilledShape) PrimitiveType() string { return "shape" }

// MarshalJSON encodes the shape with its geometry as GeoJSON
func (s FilledShape) MarshalJSON() ([]byte, error) {
	type alias FilledShape
	var geometry *geojson.Geometry
	if s.Geometry != nil {
		geometry = geojson.NewGeometry(s.Geometry)
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
		Geometry *geojson.Geometry `json:"geometry"`
	}{s.PrimitiveType(), alias(s), geometry})
}

// Marker is a pin placed at a point observation
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color"`
	Popup string  `json:"popup,omitempty"`
}

// PrimitiveType implements Primitive
func (Marker) PrimitiveType() string { return "marker" }

// MarshalJSON adds the primitive type discriminator
func (m Marker) MarshalJSON() ([]byte, error) {
	type alias Marker
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.PrimitiveType(), alias(m)})
}

// Circle is a radius circle drawn around a point observation
type Circle struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius"`
	LineColor    string  `json:"line_color"`
	FillColor    string  `json:"fill_color"`
	Popup        string  `json:"popup,omitempty"`
}

// PrimitiveType implements Primitive
func (Circle) PrimitiveType() string { return "circle" }

// MarshalJSON adds the primitive type discriminator
func (c Circle) MarshalJSON() ([]byte, error) {
	type alias Circle
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{c.PrimitiveType(), alias(c)})
}

// WeightedPoint is one density sample of a heat layer
type WeightedPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Weight    float64 `json:"weight"`    // Raw weight
	Intensity float64 `json:"intensity"` // Normalized 0-1
}

// PrimitiveType implements Primitive
func (WeightedPoint) PrimitiveType() string { return "heat" }

// MarshalJSON adds the primitive type discriminator
func (p WeightedPoint) MarshalJSON() ([]byte, error) {
	type alias WeightedPoint
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{p.PrimitiveType(), alias(p)})
}
