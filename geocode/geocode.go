package geocode

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const DEFAULT_USER_AGENT string = "GoFest.com College Fest Platform"
const DEFAULT_TIMEOUT time.Duration = 5 * time.Second

var (
	ErrTimeout  = errors.New("location service timeout")
	ErrNotFound = errors.New("no address for these coordinates")
)

type Place struct {
	Name      string  `json:"name"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	Postcode  string  `json:"postcode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client talks to a Nominatim instance.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DEFAULT_USER_AGENT,
		timeout:   DEFAULT_TIMEOUT,
	}
}

func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

type address struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	Postcode     string `json:"postcode"`
}

type place struct {
	DisplayName string   `json:"display_name"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Address     *address `json:"address"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p place) toPlace() Place {
	out := Place{Name: p.DisplayName}
	out.Latitude, _ = strconv.ParseFloat(p.Lat, 64)
	out.Longitude, _ = strconv.ParseFloat(p.Lon, 64)
	return out
}

// reversePlace falls back further than search results do: municipality for
// the city and region for the state.
func (p place) reversePlace() Place {
	out := p.toPlace()
	if p.Address != nil {
		out.City = firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village, p.Address.Municipality)
		out.State = firstNonEmpty(p.Address.State, p.Address.Region)
		out.Country = p.Address.Country
		out.Postcode = p.Address.Postcode
	}
	return out
}

func (p place) searchPlace() Place {
	out := p.toPlace()
	if p.Address != nil {
		out.City = firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village)
		out.State = p.Address.State
		out.Country = p.Address.Country
		out.Postcode = p.Address.Postcode
	}
	return out
}

// isTimeout also matches fasthttp.ErrTimeout, which is not a net.Error.
func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (c *Client) get(path string, query url.Values, dst interface{}) error {
	query.Set("format", "json")
	query.Set("addressdetails", "1")

	a := fiber.Get(c.baseURL + path + "?" + query.Encode())
	a.UserAgent(c.userAgent)
	a.Set(fiber.HeaderAcceptLanguage, "en")
	a.Timeout(c.timeout)

	code, body, errs := a.Bytes()
	for _, err := range errs {
		if isTimeout(err) {
			return ErrTimeout
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("nominatim request failed: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("nominatim returned %d", code)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("cannot decode nominatim response: %w", err)
	}
	return nil
}

// Reverse resolves coordinates into an address. Country defaults to India.
func (c *Client) Reverse(lat, lon float64) (Place, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("zoom", "10")

	var p place
	if err := c.get("/reverse", query, &p); err != nil {
		return Place{}, err
	}
	if p.Address == nil {
		return Place{}, ErrNotFound
	}

	out := p.reversePlace()
	out.Country = firstNonEmpty(out.Country, "India")
	out.Latitude, out.Longitude = lat, lon
	return out, nil
}

// Search looks places up by free text within India.
func (c *Client) Search(text string, limit int) ([]Place, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("countrycodes", "in")
	query.Set("limit", strconv.Itoa(limit))

	var found []place
	if err := c.get("/search", query, &found); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(found))
	for _, p := range found {
		places = append(places, p.searchPlace())
	}
	return places, nil
}
