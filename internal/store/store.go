// Package store defines the record persistence contract shared by the
// relational and embedded backends.
package store

import (
	"context"

	"github.com/amaumene/watchtrack/internal/models"
)

// Store owns persistent record state.
//
// Lookups that find nothing return (nil, nil) rather than an error: absence
// is a normal outcome, and it is up to the caller to decide what it means.
type Store interface {
	// Insert assigns a new id and persists r. A duplicate title fails with
	// models.ErrConstraintViolation.
	Insert(ctx context.Context, r *models.Record) (*models.Record, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	Scan(ctx context.Context, q Query) ([]*models.Record, error)
	// Update merges the supplied patch fields into the stored record.
	Update(ctx context.Context, id int64, p models.Patch) (*models.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	IncrementRewatch(ctx context.Context, id int64) (*models.Record, error)

	// AverageRating ignores unrated records and is nil when none are rated.
	AverageRating(ctx context.Context) (*float64, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)

	// Maintain runs backend housekeeping. It never changes record contents.
	Maintain(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Query describes a scan: an optional filter, ordering and window
type Query struct {
	Filter Filter
	Sort   *models.Sort // nil orders by id ascending
	Offset int
	Limit  int // 0 means no limit
}

// Filter is a conjunction of predicates. The zero value matches everything.
type Filter struct {
	Status        *models.Status
	MinRating     *float64 // inclusive, implies rated
	MaxRating     *float64 // inclusive, implies rated
	RatedOnly     bool
	WatchedOnly   bool   // last watched timestamp present
	TitleContains string // case-insensitive substring
}
