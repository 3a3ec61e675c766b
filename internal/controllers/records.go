package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/watchtrack/internal/metrics"
	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
)

const (
	cacheKeyAverage = "stats:average-rating"
	cacheKeyCounts  = "stats:count-by-status"
)

// RecordsController implements the record queries and commands. It keeps
// no record state of its own; every call is one store operation.
type RecordsController struct {
	store  store.Store
	stats  *cache.Cache // nil when caching is disabled
	gen    atomic.Uint64 // bumped by every write
	tracer trace.Tracer
	logger *logrus.Logger
	now    func() time.Time
}

// NewRecordsController creates a new records controller. A statsTTL of zero
// disables the statistics cache.
func NewRecordsController(s store.Store, statsTTL time.Duration, tracer trace.Tracer, logger *logrus.Logger) *RecordsController {
	c := &RecordsController{
		store:  s,
		tracer: tracer,
		logger: logger,
		now:    time.Now,
	}
	if statsTTL > 0 {
		c.stats = cache.New(statsTTL, 2*statsTTL)
	}
	return c
}

// SetClock replaces the time source used by MarkWatched
func (c *RecordsController) SetClock(now func() time.Time) {
	c.now = now
}

// Create stores a new record and returns it with its generated id
func (c *RecordsController) Create(ctx context.Context, r *models.Record) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "create")
	defer func() { done(err) }()

	rec, err = c.store.Insert(ctx, r)
	if err != nil {
		return nil, err
	}
	c.invalidateStats()

	c.logger.WithFields(logrus.Fields{
		"id":    rec.ID,
		"title": rec.Title,
	}).Info("Record created")
	return rec, nil
}

// Get retrieves a record by id
func (c *RecordsController) Get(ctx context.Context, id int64) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "get", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	rec, err = c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(id)
	}
	return rec, nil
}

// List returns a window of records in id order
func (c *RecordsController) List(ctx context.Context, skip, limit int) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "list")
	defer func() { done(err) }()

	return c.store.Scan(ctx, store.Query{Offset: skip, Limit: limit})
}

// Replace overwrites every mutable field of a record
func (c *RecordsController) Replace(ctx context.Context, id int64, r *models.Record) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "replace", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	return c.update(ctx, id, models.ReplaceWith(r))
}

// Patch changes only the fields set in p
func (c *RecordsController) Patch(ctx context.Context, id int64, p models.Patch) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "patch", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	if p.IsEmpty() {
		return nil, fmt.Errorf("%w: patch changes no field", models.ErrInvalidRequest)
	}
	return c.update(ctx, id, p)
}

func (c *RecordsController) update(ctx context.Context, id int64, p models.Patch) (*models.Record, error) {
	rec, err := c.store.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(id)
	}
	c.invalidateStats()
	return rec, nil
}

// Delete removes a record
func (c *RecordsController) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := c.begin(ctx, "delete", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	deleted, err := c.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound(id)
	}
	c.invalidateStats()

	c.logger.WithField("id", id).Info("Record deleted")
	return nil
}

// ByStatus returns every record with the given status
func (c *RecordsController) ByStatus(ctx context.Context, status models.Status) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "by_status", attribute.String("record.status", string(status)))
	defer func() { done(err) }()

	return c.store.Scan(ctx, store.Query{Filter: store.Filter{Status: &status}})
}

// ByRatingRange returns rated records with min <= rating <= max
func (c *RecordsController) ByRatingRange(ctx context.Context, min, max float64) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "by_rating_range")
	defer func() { done(err) }()

	return c.store.Scan(ctx, store.Query{Filter: store.Filter{MinRating: &min, MaxRating: &max}})
}

// Search returns records whose title contains term, ignoring case
func (c *RecordsController) Search(ctx context.Context, term string) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "search")
	defer func() { done(err) }()

	return c.store.Scan(ctx, store.Query{Filter: store.Filter{TitleContains: term}})
}

// Sorted returns every record ordered by s, ties broken by id
func (c *RecordsController) Sorted(ctx context.Context, s models.Sort) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "sorted", attribute.String("sort.field", string(s.Field)))
	defer func() { done(err) }()

	if _, ok := models.ParseSortField(string(s.Field)); !ok {
		return nil, fmt.Errorf("%w: unknown sort field %q", models.ErrInvalidRequest, s.Field)
	}
	return c.store.Scan(ctx, store.Query{Sort: &s})
}

// MarkWatched sets the status to Watched and stamps the current time.
// The rating is only overwritten when one is given; progress is untouched.
func (c *RecordsController) MarkWatched(ctx context.Context, id int64, rating *float64) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "mark_watched", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	watchedAt := c.now().UTC().Truncate(time.Microsecond)
	p := models.Patch{
		Status:        models.Some(models.StatusWatched),
		LastWatchedAt: models.Some(&watchedAt),
	}
	if rating != nil {
		p.Rating = models.Some(models.Ptr(*rating))
	}

	rec, err = c.update(ctx, id, p)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"id":    rec.ID,
		"title": rec.Title,
	}).Info("Record marked as watched")
	return rec, nil
}

// IncrementRewatch adds one to the rewatch counter
func (c *RecordsController) IncrementRewatch(ctx context.Context, id int64) (rec *models.Record, err error) {
	ctx, done := c.begin(ctx, "increment_rewatch", attribute.Int64("record.id", id))
	defer func() { done(err) }()

	rec, err = c.store.IncrementRewatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(id)
	}
	return rec, nil
}

// AverageRating returns the mean of all present ratings rounded to two
// decimals, or nil when nothing is rated
func (c *RecordsController) AverageRating(ctx context.Context) (avg *float64, err error) {
	ctx, done := c.begin(ctx, "average_rating")
	defer func() { done(err) }()

	if cached, ok := c.cached(cacheKeyAverage); ok {
		return copyFloat(cached.(*float64)), nil
	}

	gen := c.gen.Load()
	avg, err = c.store.AverageRating(ctx)
	if err != nil {
		return nil, err
	}
	if avg != nil {
		rounded := math.Round(*avg*100) / 100
		avg = &rounded
	}

	c.remember(cacheKeyAverage, gen, copyFloat(avg))
	return avg, nil
}

// CountByStatus returns the number of records per status
func (c *RecordsController) CountByStatus(ctx context.Context) (counts map[models.Status]int64, err error) {
	ctx, done := c.begin(ctx, "count_by_status")
	defer func() { done(err) }()

	if cached, ok := c.cached(cacheKeyCounts); ok {
		return copyCounts(cached.(map[models.Status]int64)), nil
	}

	gen := c.gen.Load()
	counts, err = c.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	c.remember(cacheKeyCounts, gen, copyCounts(counts))
	return counts, nil
}

// TopRated returns the best rated records, highest first
func (c *RecordsController) TopRated(ctx context.Context, limit int) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "top_rated")
	defer func() { done(err) }()

	return c.store.Scan(ctx, store.Query{
		Filter: store.Filter{RatedOnly: true},
		Sort:   &models.Sort{Field: models.SortByRating, Descending: true},
		Limit:  limit,
	})
}

// RecentlyWatched returns watched records with a watch date, newest first
func (c *RecordsController) RecentlyWatched(ctx context.Context, limit int) (recs []*models.Record, err error) {
	ctx, done := c.begin(ctx, "recently_watched")
	defer func() { done(err) }()

	watched := models.StatusWatched
	return c.store.Scan(ctx, store.Query{
		Filter: store.Filter{Status: &watched, WatchedOnly: true},
		Sort:   &models.Sort{Field: models.SortByLastWatched, Descending: true},
		Limit:  limit,
	})
}

// begin opens a span for op and returns a callback recording the outcome
func (c *RecordsController) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := c.tracer.Start(ctx, "records."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := outcomeOf(err)
		metrics.IncRecordOperation(op, outcome)
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.WithError(err).WithField("operation", op).Error("Record operation failed")
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, models.ErrConstraintViolation):
		return "conflict"
	default:
		return "error"
	}
}

func notFound(id int64) error {
	return fmt.Errorf("%w: id %d", models.ErrNotFound, id)
}

func (c *RecordsController) cached(key string) (interface{}, bool) {
	if c.stats == nil {
		return nil, false
	}
	v, ok := c.stats.Get(key)
	metrics.IncStatsCache(ok)
	return v, ok
}

// remember caches v only if no write happened since gen was read. The second
// check drops a value set after a concurrent flush.
func (c *RecordsController) remember(key string, gen uint64, v interface{}) {
	if c.stats == nil || c.gen.Load() != gen {
		return
	}
	c.stats.SetDefault(key, v)
	if c.gen.Load() != gen {
		c.stats.Delete(key)
	}
}

func (c *RecordsController) invalidateStats() {
	c.gen.Add(1)
	if c.stats != nil {
		c.stats.Flush()
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyCounts(m map[models.Status]int64) map[models.Status]int64 {
	out := make(map[models.Status]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
