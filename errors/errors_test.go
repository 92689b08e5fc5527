package errors

import (
	stderrors "errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return stderrors.New("db exploded")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return RaisePermissionsError(c, "nope")
	})

	tests := []struct {
		route        string
		expectedCode int
		expectedBody string
	}{
		{"/boom", 500, `{"detail":"Internal server error"}`},
		{"/teapot", 418, `{"detail":"short and stout"}`},
		{"/forbidden", 403, `{"detail":"nope"}`},
		{"/missing", 404, `{"detail":"Cannot GET /missing"}`},
	}

	for _, test := range tests {
		res, err := app.Test(httptest.NewRequest("GET", test.route, nil), -1)
		assert.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		assert.Equalf(t, test.expectedCode, res.StatusCode, test.route)
		assert.JSONEqf(t, test.expectedBody, string(body), test.route)
	}
}
