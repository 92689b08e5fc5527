package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/database"
	"gofest/geocode"
	"gofest/mailer"
	"gofest/ratelimit"
)

// Handler holds what the route handlers need. Fields are set once at startup.
type Handler struct {
	Store     database.Store
	SecretKey string
	Notifier  mailer.Notifier
	Geocoder  *geocode.Client
	Stats     *ratelimit.MemoryStats
	Log       *logrus.Entry
}

func GetRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "gofest api"})
}

func GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func paramId(c *fiber.Ctx, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	return id, err == nil
}

func uniqueIds(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
