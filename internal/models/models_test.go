package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_StringKeepsWhitespace(t *testing.T) {
	r := NewRecord(3, []string{"Region", "Rate"}, []string{" NSW ", "5.1"})

	assert.Equal(t, " NSW ", r.String("Region"))
	assert.Equal(t, 3, r.Row)
	assert.False(t, r.IsNull("Region"))
	assert.True(t, r.IsNull("Missing"))
}

func TestRecord_Float(t *testing.T) {
	r := NewRecord(0, []string{"a", "b", "c", "d"}, []string{"1,234.5", "7.2%", "abc", "NaN"})

	v, ok := r.Float("a")
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)

	v, ok = r.Float("b")
	require.True(t, ok)
	assert.Equal(t, 7.2, v)

	_, ok = r.Float("c")
	assert.False(t, ok)
	_, ok = r.Float("d")
	assert.False(t, ok, "NaN is treated as missing")
}

func TestRecord_StringFormatsCoercedValues(t *testing.T) {
	r := NewRecord(0, []string{"n", "t"}, nil)
	r.Set("n", 5.25)
	r.Set("t", time.Date(2015, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Equal(t, "5.25", r.String("n"))
	assert.Equal(t, "2015-01-02T03:04:05Z", r.String("t"))
}

func TestParseNumber(t *testing.T) {
	valid := map[string]float64{
		"4.5":        4.5,
		" 5.1% ":     5.1,
		"25,690,000": 25690000,
		"-1,234.75":  -1234.75,
		"999":        999,
		"1,000%":     1000,
	}
	for in, want := range valid {
		got, err := ParseNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"1,5", "12,34", "1,2345", ",100", "1,000,00", "abc", ""} {
		_, err := ParseNumber(in)
		assert.Error(t, err, in)
	}
}

func TestColorBinMapping_BinFor(t *testing.T) {
	m := &ColorBinMapping{Bins: []ColorBin{
		{Lower: 0, Upper: 10, Color: "#a"},
		{Lower: 10, Upper: 20, Color: "#b"},
		{Lower: 20, Upper: 30, Color: "#c", Closed: true},
	}}

	cases := []struct {
		value float64
		want  int
	}{
		{-1, -1},
		{0, 0},
		{9.999, 0},
		{10, 1},
		{20, 2},
		{30, 2},
		{30.0001, -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, m.BinFor(tc.value), "value %v", tc.value)
	}
	assert.Equal(t, "#b", m.ColorFor(15, "#none"))
	assert.Equal(t, "#none", m.ColorFor(99, "#none"))
}

func TestColorBinMapping_Empty(t *testing.T) {
	var m *ColorBinMapping
	assert.Equal(t, -1, m.BinFor(1))
	assert.Equal(t, -1, (&ColorBinMapping{}).BinFor(1))
}

func TestMap_SealOnce(t *testing.T) {
	m := &Map{}
	assert.False(t, m.Sealed())
	assert.True(t, m.Seal())
	assert.False(t, m.Seal())
	assert.True(t, m.Sealed())

	m.Unseal()
	assert.False(t, m.Sealed())
	assert.True(t, m.Seal())
}

func TestPrimitives_MarshalWithType(t *testing.T) {
	shape := FilledShape{
		Key:      "NSW",
		Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		Bin:      2,
	}
	b, err := json.Marshal(shape)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "shape", decoded["type"])
	assert.Equal(t, "NSW", decoded["key"])
	geometry, ok := decoded["geometry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Polygon", geometry["type"])

	b, err = json.Marshal(Layer{Name: "m", Primitives: []Primitive{Marker{Lat: 1, Lon: 2}, WeightedPoint{Weight: 1}}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"marker"`)
	assert.Contains(t, string(b), `"type":"heat"`)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := error(&ExportError{Destination: "/x.html", Err: cause})

	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.ErrorIs(t, err, cause)

	mismatch := &BindingMismatch{KeyField: "Region", Count: 1, Keys: []string{"ACT"}}
	assert.Contains(t, mismatch.Error(), `"ACT"`)
}
