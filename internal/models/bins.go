package models

import "sort"

// ColorBin is one value range of a color bin mapping.
// Ranges are half-open [Lower, Upper) except the last bin, which is closed.
type ColorBin struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Color  string  `json:"color"`  // Hex fill color
	Closed bool    `json:"closed"` // Upper bound inclusive
}

// Contains reports whether v falls into the bin
func (b ColorBin) Contains(v float64) bool {
	if v < b.Lower {
		return false
	}
	if b.Closed {
		return v <= b.Upper
	}
	return v < b.Upper
}

// ColorBinMapping partitions the observed metric domain into ordered bins
type ColorBinMapping struct {
	Scheme string     `json:"scheme"` // "quantile" or "equal_width"
	Bins   []ColorBin `json:"bins"`
}

// Min returns the lower bound of the domain
func (m *ColorBinMapping) Min() float64 {
	if m == nil || len(m.Bins) == 0 {
		return 0
	}
	return m.Bins[0].Lower
}

// Max returns the upper bound of the domain
func (m *ColorBinMapping) Max() float64 {
	if m == nil || len(m.Bins) == 0 {
		return 0
	}
	return m.Bins[len(m.Bins)-1].Upper
}

// BinFor returns the index of the bin holding v, or -1 outside the domain
func (m *ColorBinMapping) BinFor(v float64) int {
	if m == nil || len(m.Bins) == 0 {
		return -1
	}
	if v < m.Bins[0].Lower || v > m.Bins[len(m.Bins)-1].Upper {
		return -1
	}
	idx := sort.Search(len(m.Bins), func(i int) bool {
		return v < m.Bins[i].Upper
	})
	if idx == len(m.Bins) {
		// v equals the closed upper bound of the last bin
		return len(m.Bins) - 1
	}
	return idx
}

// ColorFor returns the fill color for v, or fallback outside the domain
func (m *ColorBinMapping) ColorFor(v float64, fallback string) string {
	idx := m.BinFor(v)
	if idx < 0 {
		return fallback
	}
	return m.Bins[idx].Color
}
