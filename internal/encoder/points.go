package encoder

import (
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/spatial"
)

// PointFields names the record fields read for point mode
type PointFields struct {
	Lat    string
	Lon    string
	Weight string // Optional
	Label  string // Optional
}

// Locator finds the region containing a coordinate. *geometry.Registry implements it.
type Locator interface {
	Locate(lat, lon float64) (models.Feature, bool)
}

// PointResult holds the retained observations and the skip counters
type PointResult struct {
	Points     []models.PointObservation
	Total      int // Records examined
	Missing    int // Missing, blank, NaN or unparseable coordinate
	OutOfRange int // |lat| > 90 or |lon| > 180
	BadWeight  int // Weight present but not numeric, point kept with default weight
	Located    int // Points tagged with a containing region
}

// Skipped returns the number of records that produced no point
func (r PointResult) Skipped() int {
	return r.Missing + r.OutOfRange
}

// EncodePoints converts records to point observations.
// Bad rows are skipped one by one and counted; the operation itself never fails.
// locator may be nil.
func EncodePoints(records []models.Record, fields PointFields, locator Locator) PointResult {
	res := PointResult{
		Points: make([]models.PointObservation, 0, len(records)),
		Total:  len(records),
	}

	for _, rec := range records {
		lat, okLat := rec.Float(fields.Lat)
		lon, okLon := rec.Float(fields.Lon)
		if !okLat || !okLon {
			res.Missing++
			continue
		}
		if !spatial.ValidCoordinate(lat, lon) {
			res.OutOfRange++
			continue
		}

		obs := models.PointObservation{Row: rec.Row, Lat: lat, Lon: lon}

		if fields.Weight != "" && !rec.IsNull(fields.Weight) {
			if w, ok := rec.Float(fields.Weight); ok {
				obs.Weight = &w
			} else {
				res.BadWeight++
			}
		}
		if fields.Label != "" {
			obs.Label = rec.String(fields.Label)
		}
		if locator != nil {
			if f, ok := locator.Locate(lat, lon); ok {
				obs.Region = f.Key
				res.Located++
			}
		}

		res.Points = append(res.Points, obs)
	}

	return res
}
