package models

import "sync/atomic"

// Control is an interactive map control
type Control string

const (
	ControlZoomMeasure Control = "zoom-measure" // Distance and area measuring tool
	ControlLayerToggle Control = "layer-toggle" // Overlay visibility switcher
	ControlScale       Control = "scale"        // Metric/imperial scale bar
)

// KnownControl reports whether name is a supported control
func KnownControl(name string) bool {
	switch Control(name) {
	case ControlZoomMeasure, ControlLayerToggle, ControlScale:
		return true
	}
	return false
}

// Location is a latitude/longitude pair
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Legend describes the color scale shown for a choropleth
type Legend struct {
	Title       string     `json:"title"`
	Bins        []ColorBin `json:"bins"`
	NoDataColor string     `json:"no_data_color"`
}

// Map is the composed artifact: base canvas, ordered layers and controls.
// A map is exported once; afterwards it is sealed.
type Map struct {
	Title    string    `json:"title"`
	Center   Location  `json:"center"`
	Zoom     int       `json:"zoom"`
	Tiles    string    `json:"tiles"`
	Layers   []Layer   `json:"layers"`
	Controls []Control `json:"controls"`
	Legend   *Legend   `json:"legend,omitempty"`

	sealed atomic.Bool
}

// Seal marks the map as exported. It returns false if it was already sealed.
func (m *Map) Seal() bool {
	return m.sealed.CompareAndSwap(false, true)
}

// Unseal releases a seal claimed by an export that did not complete
func (m *Map) Unseal() {
	m.sealed.Store(false)
}

// Sealed reports whether the map has been exported
func (m *Map) Sealed() bool {
	return m.sealed.Load()
}
