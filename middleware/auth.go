package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/database"
	apperrors "gofest/errors"
	"gofest/model"
	"gofest/ratelimit"
)

const identityKey = "identity"
const userKey = "user"

// Authorize verifies the bearer token and loads the active user it names into
// the request locals.
func Authorize(secret string, users database.UserStore) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		ErrorHandler:   jwtError,
		SuccessHandler: loadUser(users),
		ContextKey:     identityKey,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return apperrors.RaiseUnauthorizedError(c, "Invalid authentication credentials")
}

func loadUser(users database.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(identityKey).(*jwt.Token)
		if !ok {
			return jwtError(c, nil)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return jwtError(c, nil)
		}
		sub, _ := claims["sub"].(string)
		userId, err := primitive.ObjectIDFromHex(sub)
		if err != nil {
			return jwtError(c, err)
		}

		user, err := users.GetUser(c.UserContext(), userId)
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.RaiseUnauthorizedError(c, "User not found")
		}
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperrors.RaisePermissionsError(c, "Inactive user")
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user loaded by Authorize.
func CurrentUser(c *fiber.Ctx) (model.User, bool) {
	user, ok := c.Locals(userKey).(model.User)
	return user, ok
}

// RequireAdmin must run after Authorize.
func RequireAdmin(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok || !user.IsAdmin() {
		return apperrors.RaisePermissionsError(c, "Admin access required")
	}
	return c.Next()
}

// UserOrIPKey identifies rate limited callers by user id, by address when anonymous.
func UserOrIPKey(c *fiber.Ctx) string {
	if user, ok := CurrentUser(c); ok {
		return "user:" + user.Id.Hex()
	}
	return "ip:" + ratelimit.IPKey(c)
}
