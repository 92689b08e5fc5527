package handlers_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"gofest/auth"
	"gofest/database"
	"gofest/errors"
	"gofest/geocode"
	"gofest/handlers"
	"gofest/logger"
	"gofest/mailer"
	"gofest/model"
	"gofest/ratelimit"
	"gofest/router"
)

const testSecret = "test-secret"

type Test struct {
	description  string
	method       string
	route        string
	token        string
	bodyinput    interface{}
	expectedCode int
	expectedBody string
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []mailer.Notice
	organizer []mailer.Notice
}

func (n *recordingNotifier) RegistrationConfirmed(_ context.Context, notice mailer.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, notice)
	return nil
}

func (n *recordingNotifier) OrganizerNotified(_ context.Context, notice mailer.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.organizer = append(n.organizer, notice)
	return nil
}

func (n *recordingNotifier) organizerEmails() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.organizer))
	for _, notice := range n.organizer {
		out = append(out, notice.OrganizerEmail)
	}
	return out
}

type testServer struct {
	app      *fiber.App
	store    *database.Memory
	notifier *recordingNotifier
	stats    *ratelimit.MemoryStats
}

func nominatimStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		switch r.URL.Path {
		case "/reverse":
			switch q.Get("lat") {
			case "1":
				w.Write([]byte(`{"error":"Unable to geocode"}`))
			case "2":
				time.Sleep(300 * time.Millisecond)
				w.Write([]byte(`{}`))
			case "3":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.Write([]byte(`{"display_name":"Powai, Mumbai, Maharashtra, India",
					"address":{"village":"Powai","state":"Maharashtra","postcode":"400076"}}`))
			}
		case "/search":
			if q.Get("q") == "nowhere at all" {
				w.Write([]byte(`[]`))
				return
			}
			w.Write([]byte(`[{"display_name":"IIT Bombay, Powai, Mumbai","lat":"19.1334","lon":"72.9133",
				"address":{"city":"Mumbai","state":"Maharashtra","country":"India"}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	nominatim := nominatimStub()
	t.Cleanup(nominatim.Close)

	log := logger.New("error")
	srv := &testServer{
		store:    database.NewMemory(),
		notifier: &recordingNotifier{},
		stats:    ratelimit.NewMemoryStats(),
	}
	h := &handlers.Handler{
		Store:     srv.store,
		SecretKey: testSecret,
		Notifier:  srv.notifier,
		Geocoder:  geocode.New(nominatim.URL).WithTimeout(100 * time.Millisecond),
		Stats:     srv.stats,
		Log:       logger.Component(log, "api"),
	}

	srv.app = fiber.New(fiber.Config{ErrorHandler: errors.Handler})
	router.SetupRoutes(srv.app, h, router.Options{
		Limiter:      ratelimit.NewStore(2 * time.Second),
		LimiterStats: srv.stats,
	})
	return srv
}

// addUser stores a user with the password "secret123" and returns it with a token.
func (s *testServer) addUser(t *testing.T, name, email string, role model.Role) (model.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	user := model.User{Name: name, Email: email, Password: hash, Role: role, IsActive: true}
	require.NoError(t, s.store.CreateUser(context.Background(), &user))

	token, err := auth.CreateAccessToken(testSecret, user.Id, user.Email)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) addFest(t *testing.T, host model.User, title string, mutate ...func(*model.Fest)) model.Fest {
	t.Helper()
	fest := validFest(title)
	fest.HostedBy = host.Id
	for _, m := range mutate {
		m(&fest)
	}
	fest.ApplyDefaults()
	require.NoError(t, s.store.CreateFest(context.Background(), &fest))
	return fest
}

func validFest(title string) model.Fest {
	return model.Fest{
		Title:       title,
		Slug:        model.Slugify(title),
		Category:    "Cultural",
		Description: "Three days of music and dance",
		Image:       "https://example.com/poster.png",
		College:     "IIT Bombay",
		Date:        "2026-12-20",
		Location:    model.Location{City: "Mumbai", State: "Maharashtra"},
		Organizer:   model.Organizer{Name: "Aarav", Role: "Head", College: "IIT Bombay", Email: "team@example.com"},
		Events: []model.Event{
			{Name: "Battle of Bands", Date: "2026-12-20", Time: "18:00", Venue: "OAT", Category: "Music"},
			{Name: "Street Dance", Date: "2026-12-21", Time: "16:00", Venue: "SAC", Category: "Dance"},
		},
	}
}

func (s *testServer) do(t *testing.T, method, route, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			require.NoError(t, err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, route, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func (s *testServer) run(t *testing.T, tests []Test) {
	t.Helper()
	for _, test := range tests {
		res, body := s.do(t, test.method, test.route, test.token, test.bodyinput)
		require.Equalf(t, test.expectedCode, res.StatusCode, "%v: %s", test.description, body)
		if test.expectedBody != "" {
			require.Containsf(t, string(body), test.expectedBody, test.description)
		}
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}
