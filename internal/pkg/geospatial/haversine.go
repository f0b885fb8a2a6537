// Package geospatial holds great-circle helpers for map positions.
package geospatial

import (
	"math"

	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

const earthRadiusMeters = 6371000.0

// Distance is the haversine great-circle distance between a and b in meters.
// Headings are ignored.
func Distance(a, b domain.Position) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// MovedAtLeast reports whether the distance from a to b reaches meters.
func MovedAtLeast(a, b domain.Position, meters float64) bool {
	return Distance(a, b) >= meters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
