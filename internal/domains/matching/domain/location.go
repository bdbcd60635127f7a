package domain

import (
	"errors"
	"math"
)

const earthRadiusKm = 6371.0

// ErrInvalidLocation is returned for coordinates outside the WGS84 ranges.
var ErrInvalidLocation = errors.New("latitude must be within [-90,90] and longitude within [-180,180]")

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return ErrInvalidLocation
	}
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// DistanceKm returns the great-circle distance using the haversine formula.
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	deltaLat := (other.Lat - l.Lat) * math.Pi / 180
	deltaLng := (other.Lng - l.Lng) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func cloneLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
