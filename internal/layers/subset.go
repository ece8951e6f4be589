package layers

import "github.com/jengzang/geomap/internal/models"

// DefaultMarkerLimit bounds marker layers when no limit is configured
const DefaultMarkerLimit = 100

// SubsetPolicy bounds how many observations a volume-sensitive layer renders.
//
// Subsetting keeps the first Limit observations in input order. It exists to
// keep the rendered page responsive and is not a sample: nothing about the
// retained prefix is representative of the full data set.
type SubsetPolicy struct {
	Limit int // Negative means no limit
}

// Unlimited renders every observation
var Unlimited = SubsetPolicy{Limit: -1}

// Subset returns the first limit points in input order.
// A negative limit, or one at least len(points), returns points unchanged.
func Subset(points []models.PointObservation, limit int) []models.PointObservation {
	if limit < 0 || limit >= len(points) {
		return points
	}
	return points[:limit]
}

// Apply subsets points under the policy and reports how many were left out
func (p SubsetPolicy) Apply(points []models.PointObservation) ([]models.PointObservation, int) {
	kept := Subset(points, p.Limit)
	return kept, len(points) - len(kept)
}
