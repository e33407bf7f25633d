package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeodesicDistance(t *testing.T) {
	t.Parallel()

	// One degree of latitude is about 111.19 km on a sphere of mean Earth radius.
	d := GeodesicDistance(LatLon{Lat: 60, Lon: 24}, LatLon{Lat: 61, Lon: 24})
	assert.InDelta(t, 111195, d, 10)

	assert.Zero(t, GeodesicDistance(LatLon{Lat: 60, Lon: 24}, LatLon{Lat: 60, Lon: 24}))
}

func TestLatLonValid(t *testing.T) {
	t.Parallel()

	assert.True(t, LatLon{Lat: 60.17, Lon: 24.94}.Valid())
	assert.False(t, LatLon{Lat: 91, Lon: 0}.Valid())
	assert.False(t, LatLon{Lat: 0, Lon: 181}.Valid())
	assert.False(t, LatLon{Lat: math.NaN(), Lon: 0}.Valid())
}

func TestLocalProjectorAxes(t *testing.T) {
	t.Parallel()

	origin := LatLon{Lat: 60.0, Lon: 24.0}
	p := NewLocalProjector(origin)

	assert.Equal(t, Point{}, p.Project(origin))

	north := p.Project(LatLon{Lat: 60.001, Lon: 24.0})
	assert.InDelta(t, 0, north.X, 1e-6)
	assert.InDelta(t, 111.195, north.Y, 0.01)

	east := p.Project(LatLon{Lat: 60.0, Lon: 24.001})
	assert.Greater(t, east.X, 0.0)
	assert.InDelta(t, 0, east.Y, 0.01)
}

func TestLocalProjectorPreservesShortDistances(t *testing.T) {
	t.Parallel()

	sites := []LatLon{
		{Lat: 60.1700, Lon: 24.9400},
		{Lat: 60.1712, Lon: 24.9431},
		{Lat: 60.1689, Lon: 24.9452},
		{Lat: 60.1721, Lon: 24.9378},
	}
	p := NewLocalProjectorFor(sites)

	for i := range sites {
		for j := i + 1; j < len(sites); j++ {
			planar := Distance(p.Project(sites[i]), p.Project(sites[j]))
			geodesic := GeodesicDistance(sites[i], sites[j])
			assert.InDelta(t, geodesic, planar, 0.5, "sites %d and %d", i, j)
		}
	}
}

func TestNewLocalProjectorForCentersOnMean(t *testing.T) {
	t.Parallel()

	p := NewLocalProjectorFor([]LatLon{{Lat: 10, Lon: 20}, {Lat: 10.002, Lon: 20.002}})
	o := p.Origin()
	assert.InDelta(t, 10.001, o.Lat, 1e-6)
	assert.InDelta(t, 20.001, o.Lon, 1e-6)

	assert.Equal(t, LatLon{}, NewLocalProjectorFor(nil).Origin())
}
