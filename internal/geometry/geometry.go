// Package geometry implements the planar predicates behind the sensor graph:
// disk intersection, smallest enclosing circles and mutual intersection of
// congruent disks, plus distance helpers for planar and geographic positions.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the absolute tolerance used for coincidence and boundary tests.
// Positions are expected in meters, so this is far below sensor precision.
const Epsilon = 1e-9

// Point is a position on the plane, in the same unit as the hearing radius.
type Point = r2.Vec

// Circle is a circle on the plane.
type Circle struct {
	Center Point
	Radius float64
}

// Contains reports whether p lies inside or on the circle, within tolerance.
func (c Circle) Contains(p Point) bool {
	return Distance(c.Center, p) <= c.Radius+tolerance(c.Radius)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// DisksIntersect reports whether two disks of radius r centered at p1 and p2
// share at least one point, i.e. their centers are at most 2r apart.
func DisksIntersect(p1, p2 Point, r float64) bool {
	return Distance(p1, p2) <= 2*r+tolerance(r)
}

// MutuallyIntersect reports whether the disks of radius r centered at points
// have a common point. For congruent disks this holds iff the smallest circle
// enclosing the centers has radius at most r.
func MutuallyIntersect(points []Point, r float64) bool {
	if len(points) == 0 {
		return true
	}
	return SmallestEnclosingCircle(points).Radius <= r+tolerance(r)
}

// tolerance scales Epsilon with the magnitude of the compared quantity.
func tolerance(scale float64) float64 {
	return Epsilon * math.Max(1, math.Abs(scale))
}

