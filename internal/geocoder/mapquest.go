package geocoder

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

const (
	// DefaultMapQuestURL is the address of the MapQuest geocoding API
	DefaultMapQuestURL = "https://www.mapquestapi.com/geocoding/v1/address"
)

// The parts of MapQuest's geocoding response we are interested in
type mqResponse struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Results []struct {
		Locations []mqLocation `json:"locations"`
	} `json:"results"`
}

type mqLocation struct {
	Street     string `json:"street"`
	City       string `json:"adminArea5"`
	State      string `json:"adminArea3"`
	Country    string `json:"adminArea1"`
	PostalCode string `json:"postalCode"`
	LatLng     struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"latLng"`
}

// MapQuest is a geocoder querying the MapQuest geocoding API
type MapQuest struct {
	geocode endpoint.Endpoint
}

// NewMapQuest creates a geocoder for the MapQuest API at the given base URL
func NewMapQuest(baseURL, apiKey string) (*MapQuest, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("geocoder: MapQuest needs an API key")
	}
	if baseURL == "" {
		baseURL = DefaultMapQuestURL
	}
	tgt, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "NewMapQuest: illegal base URL")
	}
	client := httptransport.NewClient(
		http.MethodGet,
		tgt,
		makeMapQuestRequestEncoder(apiKey),
		decodeMapQuestResponse,
	)
	return &MapQuest{geocode: client.Endpoint()}, nil
}

// Geocode implements Geocoder
func (m *MapQuest) Geocode(ctx context.Context, address string) ([]Result, error) {
	res, err := m.geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	ret := res.([]Result)
	if len(ret) == 0 {
		return nil, ErrNoResults
	}
	return ret, nil
}

func makeMapQuestRequestEncoder(apiKey string) httptransport.EncodeRequestFunc {
	return func(_ context.Context, r *http.Request, request interface{}) error {
		address, ok := request.(string)
		if !ok {
			return fmt.Errorf("geocoder: illegal address parameter")
		}
		q := r.URL.Query()
		q.Set("key", apiKey)
		q.Set("location", address)
		q.Set("maxResults", "5")
		r.URL.RawQuery = q.Encode()
		return nil
	}
}

func decodeMapQuestResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder: MapQuest answered with status %d", r.StatusCode)
	}
	var resp mqResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "geocoder: failed to decode MapQuest response")
	}
	if resp.Info.StatusCode != 0 {
		return nil, fmt.Errorf("geocoder: MapQuest status %d: %s", resp.Info.StatusCode, strings.Join(resp.Info.Messages, "; "))
	}
	ret := []Result{}
	for _, r := range resp.Results {
		for _, loc := range r.Locations {
			ret = append(ret, loc.toResult())
		}
	}
	return ret, nil
}

func (l mqLocation) toResult() Result {
	var parts []string
	for _, p := range []string{l.Street, l.City, strings.TrimSpace(l.State + " " + l.PostalCode), l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Result{
		Latitude:         l.LatLng.Lat,
		Longitude:        l.LatLng.Lng,
		FormattedAddress: strings.Join(parts, ", "),
		Street:           l.Street,
		City:             l.City,
		StateCode:        l.State,
		Zipcode:          l.PostalCode,
		CountryCode:      l.Country,
	}
}
