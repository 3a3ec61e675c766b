package handlers

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
)

const (
	minRating = 0.0
	maxRating = 10.0

	defaultListLimit = 100
	maxListLimit     = 1000

	defaultDashboardLimit = 5
	maxDashboardLimit     = 100

	minQueryLength = 2
)

func badRequest(format string, args ...interface{}) error {
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(format, args...))
}

// pathID parses the :id parameter as a positive integer
func pathID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("id must be a positive integer, got %q", raw)
	}
	return id, nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

// queryFloat returns the first of keys present in the query string
func queryFloat(c *fiber.Ctx, def float64, keys ...string) (float64, error) {
	for _, key := range keys {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			return 0, badRequest("%s must be a number, got %q", key, raw)
		}
		return v, nil
	}
	return def, nil
}

func queryBool(c *fiber.Ctx, key string, def bool) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

func queryLimit(c *fiber.Ctx, def, min, max int) (int, error) {
	limit, err := queryInt(c, "limit", def)
	if err != nil {
		return 0, err
	}
	if limit < min || limit > max {
		return 0, badRequest("limit must be between %d and %d", min, max)
	}
	return limit, nil
}

func searchTerm(c *fiber.Ctx) (string, error) {
	query := c.Query("query")
	if utf8.RuneCountInString(query) < minQueryLength {
		return "", badRequest("query must be at least %d characters", minQueryLength)
	}
	return query, nil
}

func clampRating(v float64) float64 {
	if v < minRating {
		return minRating
	}
	if v > maxRating {
		return maxRating
	}
	return v
}

func validRating(v float64) bool {
	return v >= minRating && v <= maxRating
}
