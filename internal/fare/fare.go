// Package fare prices a ride from its pickup and dropoff coordinates.
// The estimate is computed exactly once, when the ride is created, and the
// result is stored on the ride; it is never recomputed afterwards.
package fare

import (
	"math"

	"github.com/example/ride-hailing/internal/models"
)

const (
	// BaseFare and PerKmRate are in whole currency units.
	BaseFare  = 50
	PerKmRate = 20

	earthRadiusKm = 6371.0
)

// Estimate returns the fare for a trip between the two points, rounded to the
// nearest whole unit. Either endpoint missing yields 0: an unpriceable ride is
// still requestable, it just rides for free on paper.
func Estimate(pickup, dropoff *models.Coord) int64 {
	if pickup == nil || dropoff == nil {
		return 0
	}
	distanceKm := HaversineKm(pickup.Lat, pickup.Lng, dropoff.Lat, dropoff.Lng)
	return int64(math.Round(BaseFare + distanceKm*PerKmRate))
}

// HaversineKm is the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
