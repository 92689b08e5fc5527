package handlers_tests

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofest/model"
	"gofest/ratelimit"
)

func TestLocation(t *testing.T) {
	srv := newTestServer(t)

	// every case runs as its own user so the limiter stays out of the way
	user := func(i int) string {
		_, token := srv.addUser(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), model.RoleStudent)
		return token
	}

	tests := []Test{
		{
			description:  "anonymous",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=19.1&lon=72.9",
			expectedCode: 401,
		},
		{
			description:  "missing coordinates",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=19.1",
			token:        user(1),
			expectedCode: 400,
			expectedBody: "Latitude and longitude are required",
		},
		{
			description:  "out of range",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=91&lon=72.9",
			token:        user(2),
			expectedCode: 400,
			expectedBody: "Invalid coordinates",
		},
		{
			description:  "not a number",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=north&lon=72.9",
			token:        user(3),
			expectedCode: 400,
			expectedBody: "Invalid coordinates",
		},
		{
			description:  "reverse geocode",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=19.1&lon=72.9",
			token:        user(4),
			expectedCode: 200,
			expectedBody: `{"coordinates":{"latitude":19.1,"longitude":72.9},"location":{"city":"Powai","state":"Maharashtra","country":"India","postcode":"400076","formatted":"Powai, Mumbai, Maharashtra, India"}}`,
		},
		{
			description:  "no address",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=1&lon=1",
			token:        user(5),
			expectedCode: 404,
			expectedBody: "Could not find address for these coordinates",
		},
		{
			description:  "upstream timeout",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=2&lon=1",
			token:        user(6),
			expectedCode: 504,
			expectedBody: "Location service timeout. Please try again.",
		},
		{
			description:  "upstream failure",
			method:       "GET",
			route:        "/api/location/reverse-geocode?lat=3&lon=1",
			token:        user(7),
			expectedCode: 500,
			expectedBody: "Failed to fetch location details. Please enter manually.",
		},
		{
			description:  "short search",
			method:       "GET",
			route:        "/api/location/search?query=ii",
			token:        user(8),
			expectedCode: 400,
			expectedBody: "Search query must be at least 3 characters",
		},
		{
			description:  "search",
			method:       "GET",
			route:        "/api/location/search?query=IIT%20Bombay",
			token:        user(9),
			expectedCode: 200,
			expectedBody: `"results":[{"name":"IIT Bombay, Powai, Mumbai","city":"Mumbai","state":"Maharashtra","country":"India","coordinates":{"latitude":19.1334,"longitude":72.9133}}]`,
		},
		{
			description:  "geocode",
			method:       "GET",
			route:        "/api/location/geocode?address=IIT%20Bombay",
			token:        user(10),
			expectedCode: 200,
			expectedBody: `{"location":{"coordinates":[19.1334,72.9133],"formatted":"IIT Bombay, Powai, Mumbai"}}`,
		},
		{
			description:  "geocode without match",
			method:       "GET",
			route:        "/api/location/geocode?address=nowhere%20at%20all",
			token:        user(11),
			expectedCode: 404,
		},
		{
			description:  "geocode without address",
			method:       "GET",
			route:        "/api/location/geocode",
			token:        user(12),
			expectedCode: 400,
		},
	}
	srv.run(t, tests)
}

func TestLocationRateLimit(t *testing.T) {
	srv := newTestServer(t)
	_, token := srv.addUser(t, "Riya", "riya@example.com", model.RoleStudent)
	_, otherToken := srv.addUser(t, "Kabir", "kabir@example.com", model.RoleStudent)
	_, adminToken := srv.addUser(t, "Admin", "admin@example.com", model.RoleAdmin)

	route := "/api/location/search?query=IIT%20Bombay"
	res, _ := srv.do(t, "GET", route, token, nil)
	assert.Equal(t, 200, res.StatusCode)

	res, body := srv.do(t, "GET", route, token, nil)
	assert.Equal(t, 429, res.StatusCode)
	assert.Equal(t, "2", res.Header.Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Too many requests. Please wait a moment."}`, string(body))

	res, _ = srv.do(t, "GET", route, otherToken, nil)
	assert.Equal(t, 200, res.StatusCode)

	res, _ = srv.do(t, "GET", "/api/location/stats", token, nil)
	assert.Equal(t, 403, res.StatusCode)

	res, body = srv.do(t, "GET", "/api/location/stats", adminToken, nil)
	require.Equal(t, 200, res.StatusCode)
	stats := decode[struct {
		Total  ratelimit.Counters            `json:"total"`
		Routes map[string]ratelimit.Counters `json:"routes"`
	}](t, body)
	assert.Equal(t, ratelimit.Counters{Allowed: 2, Denied: 1}, stats.Total)
	assert.Equal(t, ratelimit.Counters{Allowed: 2, Denied: 1}, stats.Routes["GET /api/location/search"])
}
