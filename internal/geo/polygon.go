package geo

import (
	"errors"
	"math"
)

// ErrInvalidPolygon is returned when a polygon has fewer than three vertices.
var ErrInvalidPolygon = errors.New("polygon needs at least 3 points")

// boundaryTolerance is the tolerance, in degrees, used to decide that a point lies on an edge (roughly 1 cm).
const boundaryTolerance = 1e-7

// A Polygon is an ordered list of vertices. Each vertex is connected to the next one; the last vertex connects back to the first.
type Polygon []Point

// Valid returns true if the polygon can be used for containment tests.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// Contains reports whether point lies inside the polygon. Points on an edge (including the vertices)
// count as inside only if includeBoundary is true.
//
// Coordinates are treated as planar (lng as x, lat as y), which is accurate enough for areas the size of a driveway or a street.
func (p Polygon) Contains(point Point, includeBoundary bool) (bool, error) {
	if !p.Valid() {
		return false, ErrInvalidPolygon
	}
	if p.onBoundary(point) {
		return includeBoundary, nil
	}

	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Lat > point.Lat) != (b.Lat > point.Lat) {
			x := a.Lng + (point.Lat-a.Lat)*(b.Lng-a.Lng)/(b.Lat-a.Lat)
			if point.Lng < x {
				inside = !inside
			}
		}
	}
	return inside, nil
}

func (p Polygon) onBoundary(point Point) bool {
	for i := range p {
		if onSegment(point, p[i], p[(i+1)%len(p)]) {
			return true
		}
	}
	return false
}

func onSegment(p, a, b Point) bool {
	if p.Lng < math.Min(a.Lng, b.Lng)-boundaryTolerance || p.Lng > math.Max(a.Lng, b.Lng)+boundaryTolerance ||
		p.Lat < math.Min(a.Lat, b.Lat)-boundaryTolerance || p.Lat > math.Max(a.Lat, b.Lat)+boundaryTolerance {
		return false
	}
	// distance from p to the line through a and b
	dx, dy := b.Lng-a.Lng, b.Lat-a.Lat
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.Lng-a.Lng, p.Lat-a.Lat) <= boundaryTolerance
	}
	cross := (p.Lng-a.Lng)*dy - (p.Lat-a.Lat)*dx
	return math.Abs(cross)/length <= boundaryTolerance
}

// NearestVertexDistanceKm returns the distance from point to the closest vertex of the polygon.
// This is a coarse proximity signal, not the true distance to the nearest edge.
// It returns +Inf for an empty polygon.
func (p Polygon) NearestVertexDistanceKm(point Point) float64 {
	nearest := math.Inf(1)
	for _, vertex := range p {
		nearest = math.Min(nearest, DistanceKm(point, vertex))
	}
	return nearest
}

// Centroid returns the arithmetic mean of the vertices. This is an approximation: it ignores the curvature of the earth
// and is only used as the centre of the wake-up geofence.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var c Point
	for _, vertex := range p {
		c.Lat += vertex.Lat
		c.Lng += vertex.Lng
	}
	c.Lat /= float64(len(p))
	c.Lng /= float64(len(p))
	return c
}
