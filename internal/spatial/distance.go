package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// ValidCoordinate reports whether lat is within [-90, 90] and lon within [-180, 180].
// NaN and infinite values are invalid.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// FitZoom estimates a web-map zoom level (1-18) at which a bounding box
// spanning the given corners fills roughly one screen
func FitZoom(minLat, minLon, maxLat, maxLon float64) int {
	diagonal := HaversineDistance(minLat, minLon, maxLat, maxLon)
	if diagonal <= 0 {
		return DefaultPointZoom
	}

	// At zoom 0 one 256px tile spans the equator; ~1000px viewport
	zoom := math.Log2(EquatorMeters * 4 / diagonal)
	z := int(math.Floor(zoom))
	if z < 1 {
		z = 1
	}
	if z > 18 {
		z = 18
	}
	return z
}

// Constants
const (
	EarthRadiusMeters = 6371000.0  // Earth's mean radius in meters
	EquatorMeters     = 40075016.7 // Length of the equator in meters
	DefaultPointZoom  = 12         // Zoom used when all points coincide
)
