package models

// PointObservation is a located observation used by marker and heat layers.
// Lat is within [-90, 90] and Lon within [-180, 180].
type PointObservation struct {
	Row    int      `json:"row"`              // Source row of the record
	Lat    float64  `json:"lat"`              // Latitude
	Lon    float64  `json:"lon"`              // Longitude
	Weight *float64 `json:"weight,omitempty"` // Optional density weight
	Label  string   `json:"label,omitempty"`  // Raw label text, popups clean it separately
	Region string   `json:"region,omitempty"` // Key of the containing region, if located
}

// WeightOr returns the weight, or def when the observation has none
func (p PointObservation) WeightOr(def float64) float64 {
	if p.Weight == nil {
		return def
	}
	return *p.Weight
}
