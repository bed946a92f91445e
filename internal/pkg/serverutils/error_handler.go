package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/pkg/cellstore"
)

// NewErrorHandler builds the fiber error handler. Known engine errors map to
// meaningful statuses; everything else is a logged 500.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.Is(err, cellstore.ErrCellNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, cellstore.ErrStreamingActive):
			code = fiber.StatusConflict
		case errors.Is(err, cellstore.ErrBadPosition):
			code = fiber.StatusBadRequest
		}

		if code == fiber.StatusInternalServerError {
			log.Error("http", "unhandled error", map[string]interface{}{
				"error":  err,
				"path":   ctx.Path(),
				"method": ctx.Method(),
			})
		}

		return ctx.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
