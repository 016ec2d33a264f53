package geo

import (
	"math"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// earthRadiusKm is the mean Earth radius used by the spherical model.
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in km using
// the haversine formula. Symmetric and non-negative; zero (up to floating
// precision) iff a == b. The spherical approximation is adequate at the
// local ranges matches operate over.
func Distance(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
