package geo

import "math"

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// coordinates given in degrees, using the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := (math.Sin(dLat/2) * math.Sin(dLat/2)) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ETAMinutes returns the whole minutes (rounded up) needed to cover the
// distance to the target at speedKmh. The second return is false when no ETA
// can be computed, i.e. speed is zero or negative.
func ETAMinutes(lat, lon, targetLat, targetLon, speedKmh float64) (int, bool) {
	if speedKmh <= 0 {
		return 0, false
	}
	dist := DistanceKm(lat, lon, targetLat, targetLon)
	return int(math.Ceil(dist / speedKmh * 60)), true
}
