package query

import (
	"math"

	"github.com/derWhity/devcamper/internal/geocoder"
	"golang.org/x/net/context"
)

// Radius converts a linear distance into an angular radius in radians. The distance has to be given in the same unit
// as the earth radius.
func Radius(distance, earthRadius float64) float64 {
	return distance / earthRadius
}

// Locate resolves a postal code into the center point of its first geocoding result
func Locate(ctx context.Context, geo geocoder.Geocoder, code string) (Point, error) {
	if geo == nil {
		return Point{}, &LookupError{Code: code, Err: geocoder.ErrNotConfigured}
	}
	res, err := geo.Geocode(ctx, code)
	if err != nil {
		if err == geocoder.ErrNoResults {
			return Point{}, &LookupError{Code: code, NotFound: true, Err: err}
		}
		return Point{}, &LookupError{Code: code, Err: err}
	}
	if len(res) == 0 {
		return Point{}, &LookupError{Code: code, NotFound: true}
	}
	return Point{Lat: res[0].Latitude, Lon: res[0].Longitude}, nil
}

// AngularDistance returns the central angle between two points in radians (haversine formula)
func AngularDistance(a, b Point) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := lat2 - lat1
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Contains checks if the point lies within the filter's radius
func (g *GeoFilter) Contains(p Point) bool {
	return AngularDistance(g.Center, p) <= g.Radius
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
