package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"gofest/handlers"
	"gofest/middleware"
	"gofest/ratelimit"
)

type Options struct {
	// Limiter throttles the location endpoints per user (or address).
	Limiter *ratelimit.Store
	// LimiterStats receives every limiter decision, may be nil.
	LimiterStats ratelimit.StatsStore
	// AccessLog turns on the per request log line.
	AccessLog bool
}

func SetupRoutes(app *fiber.App, h *handlers.Handler, opts Options) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	var api fiber.Router = app
	if opts.AccessLog {
		api = app.Group("/", logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	api.Get("/", handlers.GetRoot)
	api.Get("/health", handlers.GetHealth)

	authorize := middleware.Authorize(h.SecretKey, h.Store)

	//Auth
	auth := api.Group("/api/auth")
	auth.Post("/signup", h.Signup)
	auth.Post("/signin", h.Signin)
	auth.Get("/me", authorize, h.GetMe)
	auth.Put("/me", authorize, h.UpdateMe)

	//Fests
	fests := api.Group("/api/fests")
	fests.Get("/", h.ListFests)
	fests.Get("/user/my-fests", authorize, h.GetMyFests)
	fests.Get("/:slug", h.GetFestBySlug)
	fests.Post("/", authorize, h.CreateFest)
	fests.Put("/:id", authorize, h.UpdateFest)
	fests.Delete("/:id", authorize, h.DeleteFest)
	fests.Post("/:id/register", authorize, h.Register)
	fests.Get("/:id/registrations", authorize, h.GetFestRegistrations)

	//Registrations
	registrations := api.Group("/api/registrations", authorize)
	registrations.Get("/my-registrations", h.GetMyRegistrations)
	registrations.Get("/:id", h.GetRegistration)
	registrations.Patch("/:id/cancel", h.CancelRegistration)

	//Location
	throttle := ratelimit.New(ratelimit.Options{
		Store: opts.Limiter,
		Stats: opts.LimiterStats,
		KeyFn: middleware.UserOrIPKey,
		Log:   h.Log,
	})
	location := api.Group("/api/location", authorize)
	location.Get("/reverse-geocode", throttle, h.ReverseGeocode)
	location.Get("/search", throttle, h.SearchLocations)
	location.Get("/geocode", throttle, h.GeocodeAddress)
	location.Get("/stats", middleware.RequireAdmin, h.GetLimiterStats)
}
