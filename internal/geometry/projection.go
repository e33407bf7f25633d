package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for geodesic distances.
const EarthRadiusMeters = 6371000.0

// LatLon is a geographic position in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

func (l LatLon) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(l.Lat, l.Lon)
}

// Valid reports whether the coordinates are within the WGS84 ranges.
func (l LatLon) Valid() bool {
	return l.latLng().IsValid() && !math.IsNaN(l.Lat) && !math.IsNaN(l.Lon)
}

// GeodesicDistance returns the great-circle distance between a and b in meters.
func GeodesicDistance(a, b LatLon) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusMeters
}

// Projector maps geographic positions onto the plane in meters.
type Projector interface {
	Project(LatLon) Point
}

// LocalProjector is an azimuthal equidistant projection around an origin.
// Distances from the origin are exact; distances between other points are
// accurate to well under a meter across the few kilometers a sensor
// deployment spans.
type LocalProjector struct {
	origin s2.LatLng
}

// NewLocalProjector returns a projector centered on origin.
func NewLocalProjector(origin LatLon) *LocalProjector {
	return &LocalProjector{origin: origin.latLng()}
}

// NewLocalProjectorFor returns a projector centered on the mean position of
// the given coordinates.
func NewLocalProjectorFor(positions []LatLon) *LocalProjector {
	if len(positions) == 0 {
		return NewLocalProjector(LatLon{})
	}
	var sum r3.Vector
	for _, p := range positions {
		sum = sum.Add(s2.PointFromLatLng(p.latLng()).Vector)
	}
	center := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return &LocalProjector{origin: center}
}

// Origin returns the projection center.
func (p *LocalProjector) Origin() LatLon {
	return LatLon{Lat: p.origin.Lat.Degrees(), Lon: p.origin.Lng.Degrees()}
}

// Project maps ll to meters east (X) and north (Y) of the origin.
func (p *LocalProjector) Project(ll LatLon) Point {
	target := ll.latLng()
	dist := p.origin.Distance(target).Radians() * EarthRadiusMeters
	if dist == 0 {
		return Point{}
	}
	theta := bearing(p.origin, target)
	return Point{X: dist * math.Sin(theta), Y: dist * math.Cos(theta)}
}

// bearing returns the initial bearing from a to b in radians, clockwise from north.
func bearing(a, b s2.LatLng) float64 {
	lat1 := a.Lat.Radians()
	lat2 := b.Lat.Radians()
	lonDiff := b.Lng.Radians() - a.Lng.Radians()

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)
	return math.Atan2(y, x)
}
