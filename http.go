package contacts

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ContextKey is the fiber locals key the middleware stores the
// authenticated *User under.
const ContextKey = "user"

// NewServer builds the fiber app with the centralized error responder.
// No handler writes an HTTP error response directly; they return typed
// errors and this boundary maps them to the transport.
func NewServer() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "go-contacts",
		ErrorHandler: ErrorHandler,
	})
}

// NotFoundHandler is the catch-all for unknown routes
func NotFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": "Not found",
	})
}

// ErrorHandler converts flow errors into the `{"message": ...}` failure
// envelope. Rich errors carry their status; anything unexpected renders a
// generic 500 without exposing internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < fiber.StatusBadRequest {
			switch richErr.Category {
			case goerrors.CategoryValidation, goerrors.CategoryBadInput:
				status = fiber.StatusBadRequest
			case goerrors.CategoryAuth:
				status = fiber.StatusUnauthorized
			case goerrors.CategoryAuthz:
				status = fiber.StatusForbidden
			case goerrors.CategoryNotFound:
				status = fiber.StatusNotFound
			case goerrors.CategoryConflict:
				status = fiber.StatusConflict
			default:
				status = fiber.StatusInternalServerError
			}
		}

		message := richErr.Message
		if status >= fiber.StatusInternalServerError {
			message = "Server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"message": message,
		})
	}

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			return NotFoundHandler(c)
		case fiberErr.Code == fiber.StatusUnauthorized:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized",
			})
		case fiberErr.Code >= fiber.StatusInternalServerError:
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"message": "Server error",
			})
		default:
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"message": fiberErr.Message,
			})
		}
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Server error",
	})
}
