package geocoder

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestStaticGeocoder(t *testing.T) {
	g := NewStatic(map[string]Result{
		"02118": {Latitude: 42.34, Longitude: -71.07, City: "Boston"},
	})

	res, err := g.Geocode(context.Background(), " 02118 ")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Boston", res[0].City)

	_, err = g.Geocode(context.Background(), "99999")
	assert.Equal(t, ErrNoResults, err)
}

func TestNewSelectsProvider(t *testing.T) {
	g, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Static{}, g)

	_, err = New(Config{Provider: "mapquest"})
	assert.Error(t, err, "MapQuest without API key")

	_, err = New(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestMapQuestGeocode(t *testing.T) {
	var gotKey, gotLocation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotLocation = r.URL.Query().Get("location")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"info": {"statuscode": 0, "messages": []},
			"results": [{"locations": [{
				"street": "233 Bay State Rd", "adminArea5": "Boston", "adminArea3": "MA",
				"adminArea1": "US", "postalCode": "02215", "latLng": {"lat": 42.3505, "lng": -71.1054}
			}]}]
		}`))
	}))
	defer srv.Close()

	g, err := NewMapQuest(srv.URL, "secret")
	require.NoError(t, err)
	res, err := g.Geocode(context.Background(), "233 Bay State Rd Boston MA 02215")
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "233 Bay State Rd Boston MA 02215", gotLocation)
	require.Len(t, res, 1)
	assert.InDelta(t, 42.3505, res[0].Latitude, 1e-9)
	assert.InDelta(t, -71.1054, res[0].Longitude, 1e-9)
	assert.Equal(t, "233 Bay State Rd, Boston, MA 02215, US", res[0].FormattedAddress)
	assert.Equal(t, "02215", res[0].Zipcode)
}

func TestMapQuestNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info": {"statuscode": 0}, "results": [{"locations": []}]}`))
	}))
	defer srv.Close()

	g, err := NewMapQuest(srv.URL, "secret")
	require.NoError(t, err)
	_, err = g.Geocode(context.Background(), "nowhere")
	assert.Equal(t, ErrNoResults, err)
}

func TestMapQuestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info": {"statuscode": 403, "messages": ["bad key"]}}`))
	}))
	defer srv.Close()

	g, err := NewMapQuest(srv.URL, "secret")
	require.NoError(t, err)
	_, err = g.Geocode(context.Background(), "02118")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}
