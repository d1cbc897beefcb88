package geo

import "math"

const earthRadiusKm = 6371.0

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// DistanceKey returns a haversine distance in kilometers between ref and
// target. Callers use it only as an ascending ordering key; it is never
// surfaced to clients as a measured distance.
func DistanceKey(ref, target Coordinate) float64 {
	latA := ref.Lat * math.Pi / 180
	latB := target.Lat * math.Pi / 180
	dLat := (target.Lat - ref.Lat) * math.Pi / 180
	dLng := (target.Lng - ref.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
