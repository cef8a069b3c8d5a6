package query

import (
	"testing"

	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestRadius(t *testing.T) {
	assert.InDelta(t, 10.0/6378.0, Radius(10, LegacyEarthRadius), 1e-15)
	assert.Equal(t, 0.0, Radius(0, LegacyEarthRadius))
}

func TestAngularDistance(t *testing.T) {
	boston := Point{Lat: 42.3601, Lon: -71.0589}
	assert.Equal(t, 0.0, AngularDistance(boston, boston))

	// One degree of latitude along a meridian
	assert.InDelta(t, toRad(1), AngularDistance(Point{Lat: 10, Lon: 5}, Point{Lat: 11, Lon: 5}), 1e-12)

	// Boston - New York is about 306 km
	nyc := Point{Lat: 40.7128, Lon: -74.0060}
	assert.InDelta(t, 306, AngularDistance(boston, nyc)*6371, 3)
	assert.InDelta(t, AngularDistance(boston, nyc), AngularDistance(nyc, boston), 1e-15)
}

func TestGeoFilterContains(t *testing.T) {
	g := &GeoFilter{Center: Point{Lat: 42.3601, Lon: -71.0589}, Radius: Radius(50, LegacyEarthRadius)}
	assert.True(t, g.Contains(Point{Lat: 42.3505, Lon: -71.1054}), "Boston University")
	assert.True(t, g.Contains(g.Center))
	assert.False(t, g.Contains(Point{Lat: 40.7128, Lon: -74.0060}), "New York")
}

func TestLocate(t *testing.T) {
	geo := geocoder.NewStatic(map[string]geocoder.Result{"02215": {Latitude: 42.35, Longitude: -71.1}})
	p, err := Locate(context.Background(), geo, "02215")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 42.35, Lon: -71.1}, p)

	_, err = Locate(context.Background(), geo, "99999")
	require.IsType(t, &LookupError{}, err)
	assert.True(t, err.(*LookupError).NotFound)

	_, err = Locate(context.Background(), nil, "02215")
	require.IsType(t, &LookupError{}, err)
	assert.False(t, err.(*LookupError).NotFound)
	assert.Equal(t, geocoder.ErrNotConfigured, err.(*LookupError).Cause())
}
