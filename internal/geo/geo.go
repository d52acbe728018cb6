// Package geo provides great-circle distance between WGS84 points.
package geo

import (
	"math"

	"github.com/crowdproof/crowdproof/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine
// formula.
const EarthRadiusMeters = 6371000

// Distance returns the haversine great-circle distance in meters
// between two points. Identical points yield exactly 0. The formula is
// numerically stable near antipodes and across the ±180° meridian
// because it works on half-angle sines rather than a raw arccos.
// NaN or out-of-range inputs propagate as NaN; callers filter invalid
// coordinates with Coordinates.Valid before measuring.
func Distance(a, b model.Coordinates) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Clamp against floating point drift before the square roots.
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}
