// Package geo provides the geospatial math used by the grid indexer,
// the collection validator, and the nearby-coin query: great-circle
// distance, bearing, and degree↔meter conversions.
//
// Distances use the Haversine formula on a spherical Earth. Longitude
// conversions scale by cos(latitude) and must be evaluated at the
// query point's latitude; mixing latitudes biases east-west distances.
// The flat-earth degree↔meter approximations are only valid at the
// sub-kilometer scales this engine operates at.
//
// All functions are pure and deterministic.
package geo

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used by Haversine.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegreeLat is the (nearly constant) north-south length
	// of one degree of latitude.
	MetersPerDegreeLat = 111320.0
)

// Distance returns the Haversine great-circle distance in meters
// between two latitude/longitude pairs.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing in degrees from point 1 to
// point 2, normalized to [0, 360). North is 0, east is 90.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// MetersToDegreesLat converts a north-south distance to degrees of
// latitude.
func MetersToDegreesLat(m float64) float64 {
	return m / MetersPerDegreeLat
}

// MetersToDegreesLon converts an east-west distance to degrees of
// longitude at the given latitude.
func MetersToDegreesLon(m, atLat float64) float64 {
	return m / (MetersPerDegreeLat * math.Cos(radians(atLat)))
}

// DegreesLatToMeters converts degrees of latitude to meters.
func DegreesLatToMeters(deg float64) float64 {
	return deg * MetersPerDegreeLat
}

// DegreesLonToMeters converts degrees of longitude to meters at the
// given latitude.
func DegreesLonToMeters(deg, atLat float64) float64 {
	return deg * MetersPerDegreeLat * math.Cos(radians(atLat))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
