package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchtrack/internal/controllers"
	"github.com/amaumene/watchtrack/internal/models"
)

// StatsHandler handles the /stats endpoints
type StatsHandler struct {
	records *controllers.RecordsController
	logger  *logrus.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(records *controllers.RecordsController, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{records: records, logger: logger}
}

// AverageRating handles GET /stats/average-rating
func (h *StatsHandler) AverageRating(c *fiber.Ctx) error {
	avg, err := h.records.AverageRating(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"average_rating": avg})
}

// CountByStatus handles GET /stats/count-by-status. Every status is listed,
// zero when no record has it.
func (h *StatsHandler) CountByStatus(c *fiber.Ctx) error {
	counts, err := h.records.CountByStatus(c.UserContext())
	if err != nil {
		return err
	}

	out := make(map[models.Status]int64, len(models.Statuses))
	for _, s := range models.Statuses {
		out[s] = counts[s]
	}
	return c.JSON(out)
}

// TopRated handles GET /stats/top-rated?limit=
func (h *StatsHandler) TopRated(c *fiber.Ctx) error {
	limit, err := queryLimit(c, defaultDashboardLimit, 1, maxDashboardLimit)
	if err != nil {
		return err
	}

	recs, err := h.records.TopRated(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// RecentlyWatched handles GET /stats/recently-watched?limit=
func (h *StatsHandler) RecentlyWatched(c *fiber.Ctx) error {
	limit, err := queryLimit(c, defaultDashboardLimit, 1, maxDashboardLimit)
	if err != nil {
		return err
	}

	recs, err := h.records.RecentlyWatched(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}
