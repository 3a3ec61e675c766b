package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchtrack/internal/controllers"
	"github.com/amaumene/watchtrack/internal/models"
)

// RecordsHandler handles the /records endpoints
type RecordsHandler struct {
	records *controllers.RecordsController
	logger  *logrus.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(records *controllers.RecordsController, logger *logrus.Logger) *RecordsHandler {
	return &RecordsHandler{records: records, logger: logger}
}

// Create handles POST /records
func (h *RecordsHandler) Create(c *fiber.Ctx) error {
	if err := requireBody(c.Body()); err != nil {
		return err
	}
	r, err := decodeRecord(c.Body())
	if err != nil {
		return err
	}

	created, err := h.records.Create(c.UserContext(), r)
	if err != nil {
		return err
	}
	return c.JSON(created)
}

// List handles GET /records?skip=&limit=
func (h *RecordsHandler) List(c *fiber.Ctx) error {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return err
	}
	if skip < 0 {
		return badRequest("skip must not be negative")
	}
	limit, err := queryLimit(c, defaultListLimit, 0, maxListLimit)
	if err != nil {
		return err
	}
	// the store reads a zero limit as unbounded
	if limit == 0 {
		return c.JSON([]*models.Record{})
	}

	recs, err := h.records.List(c.UserContext(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// Get handles GET /records/:id
func (h *RecordsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	rec, err := h.records.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// Replace handles PUT /records/:id
func (h *RecordsHandler) Replace(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := requireBody(c.Body()); err != nil {
		return err
	}
	r, err := decodeRecord(c.Body())
	if err != nil {
		return err
	}

	updated, err := h.records.Replace(c.UserContext(), id, r)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// Patch handles PATCH /records/:id
func (h *RecordsHandler) Patch(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := requireBody(c.Body()); err != nil {
		return err
	}
	p, err := decodePatch(c.Body())
	if err != nil {
		return err
	}

	updated, err := h.records.Patch(c.UserContext(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// Delete handles DELETE /records/:id
func (h *RecordsHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.records.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Record deleted"})
}

// ByStatus handles GET /records/status/:status
func (h *RecordsHandler) ByStatus(c *fiber.Ctx) error {
	status, err := validStatus(c.Params("status"))
	if err != nil {
		return err
	}

	recs, err := h.records.ByStatus(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// ByRatingRange handles GET /records/rating/range?min=&max=
func (h *RecordsHandler) ByRatingRange(c *fiber.Ctx) error {
	min, err := queryFloat(c, minRating, "min", "min_rating")
	if err != nil {
		return err
	}
	max, err := queryFloat(c, maxRating, "max", "max_rating")
	if err != nil {
		return err
	}

	recs, err := h.records.ByRatingRange(c.UserContext(), clampRating(min), clampRating(max))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// Search handles GET /records/search?query=
func (h *RecordsHandler) Search(c *fiber.Ctx) error {
	term, err := searchTerm(c)
	if err != nil {
		return err
	}

	recs, err := h.records.Search(c.UserContext(), term)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// Suggest handles GET /records/suggest?query=&limit=
func (h *RecordsHandler) Suggest(c *fiber.Ctx) error {
	term, err := searchTerm(c)
	if err != nil {
		return err
	}
	limit, err := queryLimit(c, defaultDashboardLimit, 1, maxDashboardLimit)
	if err != nil {
		return err
	}

	suggestions, err := h.records.Suggest(c.UserContext(), term, limit)
	if err != nil {
		return err
	}
	return c.JSON(suggestions)
}

// Sorted handles GET /records/sorted?sort_by=&descending=
func (h *RecordsHandler) Sorted(c *fiber.Ctx) error {
	field, ok := models.ParseSortField(c.Query("sort_by", string(models.SortByTitle)))
	if !ok {
		return badRequest("sort_by must be one of %s", sortFieldList())
	}
	descending, err := queryBool(c, "descending", false)
	if err != nil {
		return err
	}

	recs, err := h.records.Sorted(c.UserContext(), models.Sort{Field: field, Descending: descending})
	if err != nil {
		return err
	}
	return c.JSON(nonNil(recs))
}

// MarkWatched handles PUT /records/:id/watch?rating=
func (h *RecordsHandler) MarkWatched(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var rating *float64
	if c.Query("rating") != "" {
		v, err := queryFloat(c, 0, "rating")
		if err != nil {
			return err
		}
		if !validRating(v) {
			return badRequest("rating must be between 0 and 10")
		}
		rating = &v
	}

	updated, err := h.records.MarkWatched(c.UserContext(), id, rating)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// IncrementRewatch handles PUT /records/:id/rewatch
func (h *RecordsHandler) IncrementRewatch(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	updated, err := h.records.IncrementRewatch(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func nonNil(recs []*models.Record) []*models.Record {
	if recs == nil {
		return []*models.Record{}
	}
	return recs
}

func sortFieldList() string {
	names := make([]string, len(models.SortFields))
	for i, f := range models.SortFields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
