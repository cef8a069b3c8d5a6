package models

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/query"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultPhoto is the photo file name of bootcamps that have no photo uploaded
	DefaultPhoto = "no-photo.jpg"
	// GeoJSONPoint is the GeoJSON type of a location
	GeoJSONPoint = "Point"
)

// Careers bootcamps can prepare for
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

// Location is the geocoded position of a bootcamp. It is stored as GeoJSON point.
type Location struct {
	Type string `json:"type" bson:"type"`
	// Longitude and latitude - in this order
	Coordinates      []float64 `json:"coordinates" bson:"coordinates"`
	FormattedAddress string    `json:"formattedAddress" bson:"formattedAddress"`
	Street           string    `json:"street" bson:"street"`
	City             string    `json:"city" bson:"city"`
	State            string    `json:"state" bson:"state"`
	Zipcode          string    `json:"zipcode" bson:"zipcode"`
	Country          string    `json:"country" bson:"country"`
}

// NewLocation creates a location at the given coordinates
func NewLocation(lat, lon float64) *Location {
	return &Location{Type: GeoJSONPoint, Coordinates: []float64{lon, lat}}
}

// LocationFromGeocode creates the location described by a geocoding result
func LocationFromGeocode(r geocoder.Result) *Location {
	loc := NewLocation(r.Latitude, r.Longitude)
	loc.FormattedAddress = r.FormattedAddress
	loc.Street = r.Street
	loc.City = r.City
	loc.State = r.StateCode
	loc.Zipcode = r.Zipcode
	loc.Country = r.CountryCode
	return loc
}

// Point returns the coordinates of the location
func (l *Location) Point() query.Point {
	if l == nil || len(l.Coordinates) < 2 {
		return query.Point{}
	}
	return query.Point{Lat: l.Coordinates[1], Lon: l.Coordinates[0]}
}

// Bootcamp is a bootcamp listed in the directory
type Bootcamp struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Slug          string    `json:"slug" bson:"slug"`
	Description   string    `json:"description" bson:"description"`
	Website       string    `json:"website,omitempty" bson:"website,omitempty"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	Location      *Location `json:"location,omitempty" bson:"location,omitempty"`
	Careers       []string  `json:"careers" bson:"careers"`
	AverageRating *float64  `json:"averageRating,omitempty" bson:"averageRating,omitempty"`
	AverageCost   *float64  `json:"averageCost,omitempty" bson:"averageCost,omitempty"`
	Photo         string    `json:"photo" bson:"photo"`
	Housing       bool      `json:"housing" bson:"housing"`
	JobAssistance bool      `json:"jobAssistance" bson:"jobAssistance"`
	JobGuarantee  bool      `json:"jobGuarantee" bson:"jobGuarantee"`
	AcceptGi      bool      `json:"acceptGi" bson:"acceptGi"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	// ID of the publisher owning the bootcamp
	User string `json:"user" bson:"user"`
	// The courses of the bootcamp - populated on read
	Courses []Course `json:"courses,omitempty" bson:"-"`
}

// BootcampRef is the short form of a bootcamp used when populating references
type BootcampRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Ref returns the reference form of the bootcamp
func (b *Bootcamp) Ref() *BootcampRef {
	return &BootcampRef{ID: b.ID, Name: b.Name, Description: b.Description}
}

// ValidCareer checks if the given career is one of the known careers
func ValidCareer(career string) bool {
	for _, c := range Careers {
		if c == career {
			return true
		}
	}
	return false
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify creates the URL-friendly form of a name: lower case, without diacritics, words joined by dashes
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Lower(language.Und))
	s, _, err := transform.String(t, name)
	if err != nil {
		s = strings.ToLower(name)
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(s, "-"), "-")
}
