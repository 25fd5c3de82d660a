// Package geo has the closed-form great-circle helpers used when describing
// where the rest stop is relative to the driver.
package geo

import (
	"math"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// EarthRadiusMiles is the mean Earth radius used by DistanceMiles.
const EarthRadiusMiles = 3959

var cardinals = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceMiles is the haversine distance between a and b, rounded to 0.1 mi.
func DistanceMiles(a, b domain.Coordinate) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dlat := lat2 - lat1
	dlon := radians(b.Lng) - radians(a.Lng)

	h := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.RoundToEven(EarthRadiusMiles*c*10) / 10
}

// Bearing is the initial compass bearing from a to b in [0, 360).
func Bearing(a, b domain.Coordinate) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dlon := radians(b.Lng) - radians(a.Lng)

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// Cardinal maps a bearing onto the 8-point compass.
func Cardinal(bearing float64) string {
	idx := int(math.RoundToEven(bearing/45)) % len(cardinals)
	if idx < 0 {
		idx += len(cardinals)
	}
	return cardinals[idx]
}

// Midpoint returns the middle vertex of a route, or false for an empty route.
func Midpoint(route []domain.Coordinate) (domain.Coordinate, bool) {
	if len(route) == 0 {
		return domain.Coordinate{}, false
	}
	return route[len(route)/2], true
}
