package encoder

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/geomap/internal/models"
)

func pairs(values ...string) []models.BoundPair {
	out := make([]models.BoundPair, len(values))
	for i, v := range values {
		rec := models.NewRecord(i, []string{"key", "metric"}, []string{"k", v})
		out[i] = models.BoundPair{Record: rec, Feature: &models.Feature{Key: "k"}}
	}
	return out
}

func TestEncodeRegions_Quantile(t *testing.T) {
	enc, err := EncodeRegions(pairs("1", "2", "3", "4", "5", "6", "7"), "metric", RegionOptions{})
	require.NoError(t, err)

	bins := enc.Mapping.Bins
	require.Len(t, bins, DefaultBins)
	assert.Equal(t, SchemeQuantile, enc.Mapping.Scheme)
	assert.Equal(t, 1.0, enc.Mapping.Min())
	assert.Equal(t, 7.0, enc.Mapping.Max())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 5}, enc.Assignments)

	for i := 1; i < len(bins); i++ {
		assert.Equal(t, bins[i-1].Upper, bins[i].Lower, "bins must not leave gaps")
	}
	assert.True(t, bins[len(bins)-1].Closed)
	assert.False(t, bins[0].Closed)
}

func TestEncodeRegions_EqualWidth(t *testing.T) {
	enc, err := EncodeRegions(pairs("0", "1", "10"), "metric", RegionOptions{Bins: 5, Scheme: SchemeEqualWidth})
	require.NoError(t, err)

	require.Len(t, enc.Mapping.Bins, 5)
	assert.Equal(t, 2.0, enc.Mapping.Bins[0].Upper)
	assert.Equal(t, 8.0, enc.Mapping.Bins[4].Lower)
	assert.Equal(t, []int{0, 0, 4}, enc.Assignments)
}

func TestEncodeRegions_EveryValueInExactlyOneBin(t *testing.T) {
	values := []string{"3.5", "12", "12", "0.25", "99", "41", "7", "7", "7", "63"}
	for _, scheme := range []string{SchemeQuantile, SchemeEqualWidth} {
		t.Run(scheme, func(t *testing.T) {
			in := pairs(values...)
			enc, err := EncodeRegions(in, "metric", RegionOptions{Bins: 4, Scheme: scheme})
			require.NoError(t, err)

			for i, p := range in {
				v, _ := p.Record.Float("metric")
				hits := 0
				for _, b := range enc.Mapping.Bins {
					if b.Contains(v) {
						hits++
					}
				}
				assert.Equal(t, 1, hits, "value %v", v)
				assert.GreaterOrEqual(t, enc.Assignments[i], 0)
			}
		})
	}
}

func TestEncodeRegions_CollapsedEdges(t *testing.T) {
	enc, err := EncodeRegions(pairs("1", "1", "1", "1", "5"), "metric", RegionOptions{Bins: 4})
	require.NoError(t, err)

	require.Len(t, enc.Mapping.Bins, 1)
	assert.Equal(t, models.ColorBin{Lower: 1, Upper: 5, Color: "#67a9cf", Closed: true}, enc.Mapping.Bins[0])
}

func TestEncodeRegions_SingleValue(t *testing.T) {
	enc, err := EncodeRegions(pairs("3", "3"), "metric", RegionOptions{})
	require.NoError(t, err)

	require.Len(t, enc.Mapping.Bins, 1)
	assert.Equal(t, []int{0, 0}, enc.Assignments)
}

func TestEncodeRegions_IgnoresUnmatchedAndMissing(t *testing.T) {
	in := pairs("10", "20", "1000", "", "abc")
	in[2].Feature = nil

	enc, err := EncodeRegions(in, "metric", RegionOptions{Bins: 2, Scheme: SchemeEqualWidth})
	require.NoError(t, err)

	assert.Equal(t, 20.0, enc.Mapping.Max(), "unmatched pairs do not move the boundaries")
	assert.Equal(t, 2, enc.Excluded)
	assert.Equal(t, []int{0, 1, -1, -1, -1}, enc.Assignments)
}

func TestEncodeRegions_NoValues(t *testing.T) {
	in := pairs("1")
	in[0].Feature = nil

	enc, err := EncodeRegions(in, "metric", RegionOptions{})
	require.NoError(t, err)
	assert.Empty(t, enc.Mapping.Bins)
	assert.Equal(t, []int{-1}, enc.Assignments)
}

func TestEncodeRegions_InvalidOptions(t *testing.T) {
	cases := map[string]RegionOptions{
		"too many bins":   {Bins: 12},
		"negative bins":   {Bins: -1},
		"unknown scheme":  {Scheme: "jenks"},
		"unknown palette": {Palette: "Rainbow"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := EncodeRegions(pairs("1", "2"), "metric", opts)
			assert.Error(t, err)
		})
	}
}

func TestColors(t *testing.T) {
	full, err := Colors("Blues", MaxBins)
	require.NoError(t, err)
	assert.Equal(t, "#f7fbff", full[0])
	assert.Equal(t, "#08306b", full[8])

	three, err := Colors("Blues", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"#f7fbff", "#6baed6", "#08306b"}, three)

	six, err := Colors("YlOrRd", 6)
	require.NoError(t, err)
	require.Len(t, six, 6)
	assert.Equal(t, "#ffffcc", six[0])
	assert.Equal(t, "#800026", six[5])
	for _, c := range six {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c)
	}

	_, err = Colors("Blues", 0)
	assert.Error(t, err)
	assert.Contains(t, Palettes(), DefaultPalette)
}

type boxLocator struct{}

func (boxLocator) Locate(lat, lon float64) (models.Feature, bool) {
	if (orb.Bound{Min: orb.Point{-123, 37}, Max: orb.Point{-122, 38}}).Contains(orb.Point{lon, lat}) {
		return models.Feature{Key: "SF"}, true
	}
	return models.Feature{}, false
}

func TestEncodePoints(t *testing.T) {
	header := []string{"lat", "lon", "w", "desc"}
	rows := [][]string{
		{"95", "10", "1", "north of the pole"},
		{"37.76", "-122.45", "2.5", "  BURGLARY "},
		{"", "-122.45", "1", "blank"},
		{"NaN", "-122.45", "1", "nan"},
		{"37.7", "181", "1", "east of the dateline"},
		{"12", "40", "heavy", "bad weight"},
		{"-90", "-180", "", "corner"},
	}
	records := make([]models.Record, len(rows))
	for i, r := range rows {
		records[i] = models.NewRecord(i, header, r)
	}

	res := EncodePoints(records, PointFields{Lat: "lat", Lon: "lon", Weight: "w", Label: "desc"}, boxLocator{})

	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 2, res.OutOfRange)
	assert.Equal(t, 2, res.Missing)
	assert.Equal(t, 4, res.Skipped())
	assert.Equal(t, 1, res.BadWeight)
	assert.Equal(t, 1, res.Located)

	require.Len(t, res.Points, 3)
	sf := res.Points[0]
	assert.Equal(t, 1, sf.Row)
	assert.Equal(t, 37.76, sf.Lat)
	assert.Equal(t, -122.45, sf.Lon)
	assert.Equal(t, 2.5, sf.WeightOr(1))
	assert.Equal(t, "  BURGLARY ", sf.Label, "labels are not rewritten by the encoder")
	assert.Equal(t, "SF", sf.Region)

	assert.Nil(t, res.Points[1].Weight)
	assert.Equal(t, 1.0, res.Points[1].WeightOr(1))
	assert.Equal(t, 6, res.Points[2].Row)

	for _, p := range res.Points {
		assert.LessOrEqual(t, p.Lat, 90.0)
		assert.GreaterOrEqual(t, p.Lat, -90.0)
	}
}

func TestEncodePoints_NoLocator(t *testing.T) {
	rec := models.NewRecord(0, []string{"y", "x"}, []string{"1", "2"})
	res := EncodePoints([]models.Record{rec}, PointFields{Lat: "y", Lon: "x"}, nil)

	require.Len(t, res.Points, 1)
	assert.Empty(t, res.Points[0].Region)
	assert.Nil(t, res.Points[0].Weight)
}
