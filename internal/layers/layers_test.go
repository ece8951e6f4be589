package layers

import (
	"encoding/json"
	"testing"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geomap/internal/encoder"
	"github.com/jengzang/geomap/internal/models"
)

func observations(n int) []models.PointObservation {
	out := make([]models.PointObservation, n)
	for i := range out {
		out[i] = models.PointObservation{Row: i, Lat: float64(i) / 10, Lon: float64(i) / 10}
	}
	return out
}

func TestSubset(t *testing.T) {
	points := observations(5)

	assert.Len(t, Subset(points, 3), 3)
	assert.Equal(t, points[:3], Subset(points, 3), "subset is the input prefix")
	assert.Equal(t, points, Subset(points, 5))
	assert.Equal(t, points, Subset(points, 50))
	assert.Equal(t, points, Subset(points, -1))
	assert.Empty(t, Subset(points, 0))
	assert.Equal(t, Subset(points, 2), Subset(points, 2), "subset is deterministic")
}

func TestPopupText(t *testing.T) {
	cases := map[string]string{
		"  BURGLARY ":          "Burglary",
		"vehicle theft":        "Vehicle theft",
		"ASSAULT WITH A KNIFE": "Assault with a knife",
		"\tétat d'urgence\n":   "État d'urgence",
		"":                     "",
		"   ":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, PopupText(in), "input %q", in)
	}
}

func TestBuildMarkers(t *testing.T) {
	points := observations(150)
	points[0].Label = "  LARCENY/THEFT "

	layer := BuildMarkers(points, SubsetPolicy{Limit: DefaultMarkerLimit}, MarkerStyle{Name: "incidents"})

	assert.Equal(t, "incidents", layer.Name)
	assert.Equal(t, models.LayerMarkers, layer.Kind)
	assert.Equal(t, 50, layer.Truncated)
	require.Len(t, layer.Primitives, 2*DefaultMarkerLimit)

	marker, ok := layer.Primitives[0].(models.Marker)
	require.True(t, ok)
	assert.Equal(t, "Larceny/theft", marker.Popup)
	assert.Equal(t, "red", marker.Color)

	circle, ok := layer.Primitives[1].(models.Circle)
	require.True(t, ok)
	assert.Equal(t, 500.0, circle.RadiusMeters)
	assert.Equal(t, "#3186cc", circle.FillColor)
	assert.Equal(t, marker.Popup, circle.Popup)

	last, ok := layer.Primitives[len(layer.Primitives)-2].(models.Marker)
	require.True(t, ok)
	assert.Equal(t, points[DefaultMarkerLimit-1].Lat, last.Lat, "first points in input order are kept")
}

func TestBuildMarkers_Unlimited(t *testing.T) {
	layer := BuildMarkers(observations(3), Unlimited, MarkerStyle{})
	assert.Len(t, layer.Primitives, 6)
	assert.Zero(t, layer.Truncated)
	assert.Equal(t, "markers", layer.Name)
}

func TestBuildHeat(t *testing.T) {
	w := func(v float64) *float64 { return &v }
	points := []models.PointObservation{
		{Lat: 1, Lon: 1, Weight: w(4)},
		{Lat: 2, Lon: 2},
		{Lat: 3, Lon: 3, Weight: w(-2)},
		{Lat: 4, Lon: 4, Weight: w(2)},
	}

	layer := BuildHeat(points, HeatOptions{})

	assert.Equal(t, models.LayerHeat, layer.Kind)
	assert.Equal(t, 25, layer.Options["radius"])
	require.Len(t, layer.Primitives, 4, "heat layers are not subset by default")

	var intensities []float64
	for _, p := range layer.Primitives {
		wp := p.(models.WeightedPoint)
		intensities = append(intensities, wp.Intensity)
	}
	assert.Equal(t, []float64{1, 0.25, 0, 0.5}, intensities)
}

func TestBuildHeat_ExplicitLimit(t *testing.T) {
	layer := BuildHeat(observations(10), HeatOptions{Subset: SubsetPolicy{Limit: 4}})
	assert.Len(t, layer.Primitives, 4)
	assert.Equal(t, 6, layer.Truncated)
}

func TestBuildHeat_Cells(t *testing.T) {
	points := []models.PointObservation{
		{Lat: 37.7749, Lon: -122.4194},
		{Lat: 37.7750, Lon: -122.4195},
		{Lat: 40.7128, Lon: -74.0060},
	}

	layer := BuildHeat(points, HeatOptions{CellPrecision: 5})

	require.Len(t, layer.Primitives, 2)
	sf := layer.Primitives[0].(models.WeightedPoint)
	assert.Equal(t, 2.0, sf.Weight)
	assert.Equal(t, 1.0, sf.Intensity)
	assert.InDelta(t, 37.77, sf.Lat, 0.05)

	ny := layer.Primitives[1].(models.WeightedPoint)
	assert.Equal(t, 0.5, ny.Intensity)
}

func TestBuildHeat_CellCenter(t *testing.T) {
	points := []models.PointObservation{{Lat: 37.7749, Lon: -122.4194}}

	layer := BuildHeat(points, HeatOptions{CellPrecision: 6})

	require.Len(t, layer.Primitives, 1)
	cell := layer.Primitives[0].(models.WeightedPoint)
	lat, lon := geohash.DecodeCenter("9q8yyk")
	assert.Equal(t, lat, cell.Lat)
	assert.Equal(t, lon, cell.Lon)

	deep := BuildHeat(points, HeatOptions{CellPrecision: 20})
	require.Len(t, deep.Primitives, 1)
	assert.InDelta(t, 37.7749, deep.Primitives[0].(models.WeightedPoint).Lat, 1e-6)
}

func regionFixture() ([]models.Feature, []models.BoundPair) {
	square := func(x float64) orb.Polygon {
		return orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}}
	}
	features := []models.Feature{
		{Key: "NSW", Geometry: square(0)},
		{Key: "VIC", Geometry: square(1)},
		{Key: "QLD", Geometry: square(2)},
		{Key: "WA", Geometry: square(3)},
	}
	header := []string{"state", "value"}
	pairs := []models.BoundPair{
		{Record: models.NewRecord(0, header, []string{"NSW", "10"}), Feature: &features[0]},
		{Record: models.NewRecord(1, header, []string{"VIC", "20"}), Feature: &features[1]},
		{Record: models.NewRecord(2, header, []string{"ACT", "30"})},
		{Record: models.NewRecord(3, header, []string{"VIC", "99"}), Feature: &features[1]},
	}
	return features, pairs
}

func TestBuildChoropleth(t *testing.T) {
	features, pairs := regionFixture()
	enc, err := encoder.EncodeRegions(pairs, "value", encoder.RegionOptions{Bins: 2, Scheme: encoder.SchemeEqualWidth})
	require.NoError(t, err)

	layer := BuildChoropleth(features, enc, pairs, "value", ChoroplethStyle{Name: "Population"})

	assert.Equal(t, models.LayerChoropleth, layer.Kind)
	require.Len(t, layer.Primitives, len(features), "one shape per feature")

	shapes := make(map[string]models.FilledShape)
	for _, p := range layer.Primitives {
		s := p.(models.FilledShape)
		shapes[s.Key] = s
		assert.NotEmpty(t, s.FillColor, "no shape is left unstyled")
		assert.Equal(t, 0.7, s.FillOpacity)
		assert.Equal(t, 0.2, s.LineOpacity)
	}

	assert.Equal(t, enc.Mapping.Bins[0].Color, shapes["NSW"].FillColor)
	require.NotNil(t, shapes["VIC"].Value)
	assert.Equal(t, 20.0, *shapes["VIC"].Value, "first record bound to a feature wins")
	assert.Equal(t, "VIC: 20", shapes["VIC"].Tooltip)

	for _, key := range []string{"QLD", "WA"} {
		assert.Equal(t, encoder.NoDataColor, shapes[key].FillColor)
		assert.Equal(t, -1, shapes[key].Bin)
		assert.Nil(t, shapes[key].Value)
	}
}

func TestBuildChoropleth_JSON(t *testing.T) {
	features, pairs := regionFixture()
	enc, err := encoder.EncodeRegions(pairs, "value", encoder.RegionOptions{})
	require.NoError(t, err)

	layer := BuildChoropleth(features, enc, pairs, "value", ChoroplethStyle{})
	data, err := json.Marshal(layer)
	require.NoError(t, err)

	var decoded struct {
		Primitives []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"primitives"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Primitives, 4)
	assert.Equal(t, "shape", decoded.Primitives[0].Type)
	assert.Equal(t, "Polygon", decoded.Primitives[0].Geometry.Type)
}

func TestLegend(t *testing.T) {
	_, pairs := regionFixture()
	enc, err := encoder.EncodeRegions(pairs, "value", encoder.RegionOptions{Bins: 3})
	require.NoError(t, err)

	legend := Legend("Population", enc, "")
	assert.Equal(t, "Population", legend.Title)
	assert.Equal(t, encoder.NoDataColor, legend.NoDataColor)
	assert.Equal(t, enc.Mapping.Bins, legend.Bins)
}
