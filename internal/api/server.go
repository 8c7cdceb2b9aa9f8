package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/internal/config"
	"github.com/Checker-Finance/etims-adapter/pkg/etims"
)

// NewApp builds the fiber app with the adapter's error handler and timeouts.
func NewApp(cfg *config.Config, logger *zap.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		BodyLimit:             cfg.HTTPBodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})
}

// ErrorHandler renders every error returned by a handler or middleware as
// the failure envelope.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		resp := errorResponse(err)
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		}
		if resp.StatusCode >= fiber.StatusInternalServerError {
			logger.Error("api.request_failed", fields...)
		} else {
			logger.Warn("api.request_rejected", fields...)
		}
		return c.Status(resp.StatusCode).JSON(resp)
	}
}

func errorResponse(err error) etims.ErrorResponse {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code == fiber.StatusNotFound {
			msg = notFoundMessage
		}
		return etims.ErrorResponse{
			Success:    false,
			Error:      etims.ErrorBody{Message: msg},
			StatusCode: fe.Code,
		}
	}
	return etims.FormatError(err)
}

const notFoundMessage = "Resource not found"

// NotFound answers any request no route matched.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"message": notFoundMessage},
	})
}
