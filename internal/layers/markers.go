package layers

import "github.com/jengzang/geomap/internal/models"

// MarkerStyle controls the look of a marker layer
type MarkerStyle struct {
	Name         string
	MarkerColor  string  // Defaults to red
	CircleColor  string  // Defaults to #3186cc
	RadiusMeters float64 // Defaults to 500
}

func (s MarkerStyle) withDefaults() MarkerStyle {
	if s.Name == "" {
		s.Name = "markers"
	}
	if s.MarkerColor == "" {
		s.MarkerColor = "red"
	}
	if s.CircleColor == "" {
		s.CircleColor = "#3186cc"
	}
	if s.RadiusMeters <= 0 {
		s.RadiusMeters = 500
	}
	return s
}

// BuildMarkers emits a marker and a radius circle for every point retained
// by the subset policy. Labels become popups through PopupText.
func BuildMarkers(points []models.PointObservation, policy SubsetPolicy, style MarkerStyle) models.Layer {
	style = style.withDefaults()
	kept, truncated := policy.Apply(points)

	layer := models.Layer{
		Name:       style.Name,
		Kind:       models.LayerMarkers,
		Show:       true,
		Primitives: make([]models.Primitive, 0, 2*len(kept)),
		Truncated:  truncated,
	}

	for _, p := range kept {
		popup := PopupText(p.Label)
		layer.Primitives = append(layer.Primitives,
			models.Marker{Lat: p.Lat, Lon: p.Lon, Color: style.MarkerColor, Popup: popup},
			models.Circle{
				Lat:          p.Lat,
				Lon:          p.Lon,
				RadiusMeters: style.RadiusMeters,
				LineColor:    style.CircleColor,
				FillColor:    style.CircleColor,
				Popup:        popup,
			},
		)
	}

	return layer
}
