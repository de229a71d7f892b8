package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs each request and records HTTP metrics.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}

		statusLabel := strconv.Itoa(status)
		HTTPRequestsTotal.WithLabelValues(method, path, statusLabel).Inc()
		HTTPRequestDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())

		logger.Info("request",
			zap.String("method", method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
		return err
	}
}
