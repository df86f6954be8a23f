// Package geodesy holds the spherical-earth helpers used to place and move the
// journey indicator: haversine distance, great-circle interpolation and
// date-line splitting.
package geodesy

import (
	"math"

	"golang.org/x/exp/constraints"
)

// EarthRadiusKm is the mean Earth radius used by every distance computation.
const EarthRadiusKm = 6371.0

// DefaultPathPoints is the number of interpolation steps used when a caller
// does not ask for a specific resolution.
const DefaultPathPoints = 100

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

// centralAngle returns the angle in radians subtended by the two points.
func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// HaversineKm returns the great-circle distance in kilometres. Invalid input
// propagates as NaN.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusKm * centralAngle(lat1, lon1, lat2, lon2)
}

// DistanceKm is HaversineKm for two points.
func DistanceKm(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Bearing returns the initial bearing from a to b in degrees [0,360).
func Bearing(a, b Point) float64 {
	y := math.Sin(radians(b.Lon-a.Lon)) * math.Cos(radians(b.Lat))
	x := math.Cos(radians(a.Lat))*math.Sin(radians(b.Lat)) - math.Sin(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Cos(radians(b.Lon-a.Lon))
	brng := degrees(math.Atan2(y, x))
	if brng < 0 {
		brng += 360
	}
	return brng
}

// Clamp limits x to [low, high].
func Clamp[T constraints.Ordered](x, low, high T) T {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}
