// Package geocoder resolves postal codes and addresses into geographic coordinates
package geocoder

import (
	"fmt"
	"strings"

	"golang.org/x/net/context"
)

var (
	// ErrNoResults is returned when the provider knows no location for the requested address
	ErrNoResults = fmt.Errorf("geocoder: no location found")
	// ErrNotConfigured is returned when a lookup is requested, but no geocoding provider has been configured
	ErrNotConfigured = fmt.Errorf("geocoder: no provider configured")
)

// Result is a single location returned by a geocoding provider
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	StateCode        string  `json:"stateCode"`
	Zipcode          string  `json:"zipcode"`
	CountryCode      string  `json:"countryCode"`
}

// Geocoder resolves a postal code or a free form address into a list of locations - best match first
type Geocoder interface {
	Geocode(ctx context.Context, address string) ([]Result, error)
}

// Config selects and configures the geocoding provider
type Config struct {
	// The provider to use: "static" or "mapquest"
	Provider string `json:"provider"`
	// API key for the provider
	APIKey string `json:"apiKey" env:"DEVCAMPER_GEOCODER_API_KEY, overwrite"`
	// Base URL of the provider's API - the provider default is used if empty
	BaseURL string `json:"baseUrl"`
	// Locations known to the static provider, keyed by postal code or address
	Static map[string]Result `json:"static"`
}

// New creates the geocoder described by the configuration
func New(conf Config) (Geocoder, error) {
	switch strings.ToLower(conf.Provider) {
	case "", "static":
		return NewStatic(conf.Static), nil
	case "mapquest":
		return NewMapQuest(conf.BaseURL, conf.APIKey)
	}
	return nil, fmt.Errorf("geocoder: unknown provider '%s'", conf.Provider)
}
