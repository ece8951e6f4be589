package geometry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geomap/internal/models"
)

// Two unit squares side by side plus a point feature
const statesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"STATE_NAME": "West", "code": 1},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"STATE_NAME": "East", "code": 2},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[1,0],[2,0],[2,1],[1,1],[1,0]]]]}},
    {"type": "Feature", "properties": {"STATE_NAME": "Capital", "code": 3},
     "geometry": {"type": "Point", "coordinates": [0.5, 0.5]}}
  ]
}`

func TestParse_Features(t *testing.T) {
	reg, err := Parse([]byte(statesGeoJSON), "STATE_NAME")
	require.NoError(t, err)

	require.Equal(t, 3, reg.Len())
	features := reg.Features()
	assert.Equal(t, "West", reg.KeyOf(features[0]))
	assert.Equal(t, "East", reg.KeyOf(features[1]))

	f, ok := reg.Lookup("East")
	require.True(t, ok)
	assert.Equal(t, float64(2), f.Properties["code"])

	_, ok = reg.Lookup("east")
	assert.False(t, ok, "lookup is case sensitive")
	_, ok = reg.Lookup("East ")
	assert.False(t, ok, "lookup is whitespace sensitive")
}

func TestParse_NumericKeyProperty(t *testing.T) {
	reg, err := Parse([]byte(statesGeoJSON), "code")
	require.NoError(t, err)

	_, ok := reg.Lookup("2")
	assert.True(t, ok)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		data string
		key  string
	}{
		"malformed":        {data: `{"type": "FeatureCollection", "features": [`, key: "STATE_NAME"},
		"not a collection": {data: `{"type": "Feature"}`, key: "STATE_NAME"},
		"empty":            {data: `{"type": "FeatureCollection", "features": []}`, key: "STATE_NAME"},
		"missing key":      {data: statesGeoJSON, key: "NAME"},
		"no key property":  {data: statesGeoJSON, key: ""},
		"null geometry": {
			data: `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {"STATE_NAME": "X"}, "geometry": null}]}`,
			key:  "STATE_NAME",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), tc.key)
			require.Error(t, err)

			var srcErr *models.GeometrySourceError
			assert.True(t, errors.As(err, &srcErr), "got %T", err)
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.geojson"), "STATE_NAME")

	var srcErr *models.GeometrySourceError
	require.True(t, errors.As(err, &srcErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.geojson")
	require.NoError(t, os.WriteFile(path, []byte(statesGeoJSON), 0o644))

	reg, err := Open(path, "STATE_NAME")
	require.NoError(t, err)
	assert.Equal(t, path, reg.Source())
}

func TestRegistry_Duplicates(t *testing.T) {
	reg, err := Parse([]byte(`{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"k": "A", "n": 1}, "geometry": {"type": "Point", "coordinates": [0, 0]}},
	  {"type": "Feature", "properties": {"k": "A", "n": 2}, "geometry": {"type": "Point", "coordinates": [1, 1]}}
	]}`), "k")
	require.NoError(t, err)

	f, ok := reg.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, float64(1), f.Properties["n"], "first feature wins")
	assert.Equal(t, []string{"A"}, reg.Duplicates())
}

func TestRegistry_BoundsAndLocate(t *testing.T) {
	reg, err := Parse([]byte(statesGeoJSON), "STATE_NAME")
	require.NoError(t, err)

	b := reg.Bounds()
	assert.Equal(t, 0.0, b.Min.Lon())
	assert.Equal(t, 2.0, b.Max.Lon())
	assert.Equal(t, 1.0, b.Max.Lat())

	f, ok := reg.Locate(0.5, 1.5)
	require.True(t, ok)
	assert.Equal(t, "East", f.Key)

	f, ok = reg.Locate(0.25, 0.25)
	require.True(t, ok)
	assert.Equal(t, "West", f.Key)

	_, ok = reg.Locate(5, 5)
	assert.False(t, ok)
}
