package service

import "math"

// Metres per degree used by the equirectangular approximation. Error grows
// with distance and latitude extremity; fence radii here stay under a few
// kilometres, where the approximation holds well.
const (
	metersPerDegreeLat = 110540.0
	metersPerDegreeLng = 111320.0
)

// planarDistanceMeters approximates the ground distance between two points.
func planarDistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dx := (lng2 - lng1) * metersPerDegreeLng * math.Cos(lat1*math.Pi/180)
	dy := (lat2 - lat1) * metersPerDegreeLat
	return math.Sqrt(dx*dx + dy*dy)
}

// boundingBox returns a lat/lng window that contains every point within
// radiusMeters of the center. Used as a cheap prefilter before the exact
// distance check.
func boundingBox(lat, lng, radiusMeters float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := radiusMeters / 111000.0
	dLng := radiusMeters / (111000.0 * math.Cos(lat*math.Pi/180))

	return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}
