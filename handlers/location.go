package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "gofest/errors"
	"gofest/geocode"
)

const SEARCH_LIMIT = 5
const MIN_SEARCH_LENGTH = 3

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type reverseLocation struct {
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Postcode  string `json:"postcode"`
	Formatted string `json:"formatted"`
}

type searchResult struct {
	Name        string      `json:"name"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Country     string      `json:"country"`
	Coordinates coordinates `json:"coordinates"`
}

func parseCoordinate(raw string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func (h *Handler) ReverseGeocode(c *fiber.Ctx) error {
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw == "" || lonRaw == "" {
		return apperrors.RaiseBadRequestError(c, "Latitude and longitude are required")
	}
	lat, okLat := parseCoordinate(latRaw, 90)
	lon, okLon := parseCoordinate(lonRaw, 180)
	if !okLat || !okLon {
		return apperrors.RaiseBadRequestError(c, "Invalid coordinates")
	}

	place, err := h.Geocoder.Reverse(lat, lon)
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return apperrors.RaiseNotFoundError(c, "Could not find address for these coordinates")
	case errors.Is(err, geocode.ErrTimeout):
		return apperrors.RaiseGatewayTimeoutError(c, "Location service timeout. Please try again.")
	case err != nil:
		h.Log.Errorf("reverse geocode error: %v", err)
		return apperrors.RaiseInternalServerError(c, "Failed to fetch location details. Please enter manually.")
	}

	return c.JSON(fiber.Map{
		"location": reverseLocation{
			City:      place.City,
			State:     place.State,
			Country:   place.Country,
			Postcode:  place.Postcode,
			Formatted: place.Name,
		},
		"coordinates": coordinates{Latitude: place.Latitude, Longitude: place.Longitude},
	})
}

// search runs a Nominatim lookup and writes the shared timeout/failure responses.
func (h *Handler) search(c *fiber.Ctx, text string) ([]geocode.Place, bool, error) {
	places, err := h.Geocoder.Search(text, SEARCH_LIMIT)
	if errors.Is(err, geocode.ErrTimeout) {
		return nil, false, apperrors.RaiseGatewayTimeoutError(c, "Location search timeout. Please try again.")
	}
	if err != nil {
		h.Log.Errorf("location search error: %v", err)
		return nil, false, apperrors.RaiseInternalServerError(c, "Failed to search locations.")
	}
	return places, true, nil
}

func (h *Handler) SearchLocations(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if len([]rune(query)) < MIN_SEARCH_LENGTH {
		return apperrors.RaiseBadRequestError(c, "Search query must be at least 3 characters")
	}

	places, ok, err := h.search(c, query)
	if !ok {
		return err
	}
	results := make([]searchResult, 0, len(places))
	for _, p := range places {
		results = append(results, searchResult{
			Name:        p.Name,
			City:        p.City,
			State:       p.State,
			Country:     p.Country,
			Coordinates: coordinates{Latitude: p.Latitude, Longitude: p.Longitude},
		})
	}
	return c.JSON(fiber.Map{"results": results})
}

func (h *Handler) GeocodeAddress(c *fiber.Ctx) error {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		return apperrors.RaiseBadRequestError(c, "Address is required")
	}

	places, ok, err := h.search(c, address)
	if !ok {
		return err
	}
	if len(places) == 0 {
		return apperrors.RaiseNotFoundError(c, "Could not find coordinates for this address")
	}
	first := places[0]
	return c.JSON(fiber.Map{
		"location": fiber.Map{
			"formatted":   first.Name,
			"coordinates": []float64{first.Latitude, first.Longitude},
		},
	})
}

func (h *Handler) GetLimiterStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"total":  h.Stats.Total(),
		"routes": h.Stats.ByRoute(),
	})
}
