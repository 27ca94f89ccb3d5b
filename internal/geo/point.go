// Package geo implements the geometric predicates used to decide whether a position lies inside a monitored area.
package geo

import (
	"fmt"
	"log/slog"
	"math"
)

const earthRadiusKm = 6371.0

// A Point is a position on earth, in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

var _ slog.LogValuer = Point{}

func (p Point) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("lat", p.Lat),
		slog.Float64("lng", p.Lng),
	)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lng)
}

// DistanceKm returns the great-circle distance between two points, using the haversine formula.
func DistanceKm(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
