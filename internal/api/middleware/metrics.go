package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/amaumene/watchtrack/internal/metrics"
)

// Metrics records request counts and latency per route template. It must be
// registered before Logging so the status it sees is final.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if c.Response().StatusCode() == fiber.StatusNotFound && route == "/" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Method(), route, c.Response().StatusCode(), time.Since(start))
		return err
	}
}
