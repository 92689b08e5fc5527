package errors

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
)

func RaiseError(context *fiber.Ctx, status int, detail string) error {
	return context.Status(status).JSON(fiber.Map{
		"detail": detail})
}

func RaiseUnauthorizedError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusUnauthorized, detail)
}

func RaisePermissionsError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusForbidden, detail)
}

func RaiseInternalServerError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusInternalServerError, detail)
}

func RaiseBadRequestError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusBadRequest, detail)
}

func RaiseNotFoundError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusNotFound, detail)
}

func RaiseTooManyRequestsError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusTooManyRequests, detail)
}

func RaiseGatewayTimeoutError(context *fiber.Ctx, detail string) error {
	return RaiseError(context, fiber.StatusGatewayTimeout, detail)
}

// Handler is the app-wide fiber error handler for errors no handler turned into
// a response itself.
func Handler(context *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	detail := "Internal server error"

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		status = fiberErr.Code
		detail = fiberErr.Message
	}
	return RaiseError(context, status, detail)
}
