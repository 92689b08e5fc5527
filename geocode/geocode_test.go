package geocode

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func nominatimStub(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DEFAULT_USER_AGENT, r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/reverse":
			if r.URL.Query().Get("lat") == "0" {
				w.Write([]byte(`{"error":"Unable to geocode"}`))
				return
			}
			w.Write([]byte(`{"display_name":"Powai, Mumbai, Maharashtra, India",
				"address":{"town":"Powai","region":"Konkan","postcode":"400076"}}`))
		case "/search":
			assert.Equal(t, "in", r.URL.Query().Get("countrycodes"))
			w.Write([]byte(`[{"display_name":"IIT Bombay, Powai","lat":"19.1334","lon":"72.9133",
				"address":{"city":"Mumbai","state":"Maharashtra","country":"India"}},
				{"display_name":"Panvel","lat":"18.99","lon":"73.11",
				"address":{"municipality":"Panvel","region":"Konkan","country":"India"}}]`))
		case "/slow/reverse":
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
}

func TestReverse(t *testing.T) {
	srv := nominatimStub(t)
	defer srv.Close()

	place, err := New(srv.URL).Reverse(19.13, 72.91)
	require.NoError(t, err)
	assert.Equal(t, "Powai", place.City)
	assert.Equal(t, "Konkan", place.State)
	assert.Equal(t, "India", place.Country)
	assert.Equal(t, "400076", place.Postcode)
	assert.Equal(t, 19.13, place.Latitude)

	_, err = New(srv.URL).Reverse(0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	srv := nominatimStub(t)
	defer srv.Close()

	places, err := New(srv.URL).Search("IIT Bombay", 5)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Mumbai", places[0].City)
	assert.Equal(t, 72.9133, places[0].Longitude)

	// search does not fall back to municipality or region
	assert.Empty(t, places[1].City)
	assert.Empty(t, places[1].State)
	assert.Equal(t, "India", places[1].Country)
}

func TestUpstreamFailures(t *testing.T) {
	srv := nominatimStub(t)
	defer srv.Close()

	_, err := New(srv.URL + "/broken").Search("anything", 5)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)

	_, err = New(srv.URL+"/slow").WithTimeout(50*time.Millisecond).Reverse(1, 1)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		description string
		err         error
		expected    bool
	}{
		{"fasthttp read timeout", fasthttp.ErrTimeout, true},
		{"fasthttp dial timeout", fasthttp.ErrDialTimeout, true},
		{"wrapped timeout", fmt.Errorf("request: %w", fasthttp.ErrTimeout), true},
		{"net timeout", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, true},
		{"refused", errors.New("connection refused"), false},
	}
	for _, test := range tests {
		assert.Equalf(t, test.expected, isTimeout(test.err), test.description)
	}
}
