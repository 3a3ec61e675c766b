package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchtrack/internal/api/middleware"
	"github.com/amaumene/watchtrack/internal/models"
)

// ErrorHandler renders every handler error as {"detail": "..."}
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, detail := classify(err)
		if status == fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"method":     c.Method(),
				"path":       c.Path(),
				"request_id": middleware.RequestID(c),
			}).Error("Request failed")
		}
		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound, "Record not found"
	case errors.Is(err, models.ErrConstraintViolation):
		return fiber.StatusConflict, "A record with this title already exists"
	case errors.Is(err, models.ErrInvalidRequest):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
