package dedup

import (
	"github.com/tidwall/geodesic"

	"horse.fit/incident-integrator/internal/incident"
)

const metersPerMile = 1609.344

// distanceMiles is the WGS-84 geodesic distance between two points.
func distanceMiles(a, b incident.Coordinates) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters / metersPerMile
}
