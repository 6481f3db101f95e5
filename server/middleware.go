package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"
)

// requestLogger logs one line per request once the handler chain returns
func requestLogger(logger hclog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()

		status := c.Response().StatusCode()
		if chainErr != nil {
			var fe *fiber.Error
			if errors.As(chainErr, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request", args...)
		case status >= fiber.StatusBadRequest:
			logger.Info("request", args...)
		default:
			logger.Debug("request", args...)
		}

		return chainErr
	}
}
