package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(37.76, -122.45))
	assert.True(t, ValidCoordinate(90, 180))
	assert.True(t, ValidCoordinate(-90, -180))
	assert.False(t, ValidCoordinate(95, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is ~111.2 km
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)
}

func TestFitZoom(t *testing.T) {
	city := FitZoom(37.70, -122.52, 37.83, -122.35)
	continent := FitZoom(-44, 112, -10, 154)

	assert.Greater(t, city, continent)
	assert.GreaterOrEqual(t, continent, 1)
	assert.LessOrEqual(t, city, 18)
	assert.Equal(t, DefaultPointZoom, FitZoom(1, 1, 1, 1))
}

func TestCentroidAndBoundingBox(t *testing.T) {
	points := []Point{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 4}}

	c := Centroid(points)
	assert.Equal(t, Point{Lat: 1, Lon: 2}, c)

	minLat, minLon, maxLat, maxLon := BoundingBox(points)
	assert.Equal(t, []float64{0, 0, 2, 4}, []float64{minLat, minLon, maxLat, maxLon})
}
