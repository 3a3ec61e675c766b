// Package boltstore implements store.Store on an embedded bbolt file
// through bolthold. It needs no server and suits single-user installs.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"

	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
)

var sequenceBucket = []byte("sequences")

// boltRecord is the persisted form of a record. Values are JSON encoded:
// gob drops zero values behind pointers, which would turn a 0 rating into
// an absent one.
type boltRecord struct {
	ID             uint64 `boltholdKey:"ID"`
	Title          string
	Status         models.Status
	Rating         *float64
	Seasons        *int
	Episodes       *int
	CurrentSeason  *int
	CurrentEpisode *int
	RewatchCount   int
	LastWatchedAt  *time.Time
	Note           *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store wraps the bolthold store
type Store struct {
	store  *bolthold.Store
	now    func() time.Time
	logger *logrus.Logger
}

// Open creates or opens the database file at path
func Open(path string, logger *logrus.Logger) (*Store, error) {
	bh, err := bolthold.Open(path, 0600, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = bh.Bolt().Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sequenceBucket)
		return err
	})
	if err != nil {
		bh.Close()
		return nil, fmt.Errorf("failed to create sequence bucket: %w", err)
	}

	return &Store{
		store:  bh,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.store.Close()
}

// Ping verifies the file is still readable
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Bolt().View(func(tx *bbolt.Tx) error { return nil })
}

// Maintain flushes the file to disk
func (s *Store) Maintain(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Bolt().Sync(); err != nil {
		return fmt.Errorf("failed to sync database: %w", err)
	}
	s.logger.Debug("Database maintenance completed")
	return nil
}

// Insert creates a new record with the next sequence id
func (s *Store) Insert(ctx context.Context, r *models.Record) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := fromModel(r)
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt

	err := s.store.Bolt().Update(func(tx *bbolt.Tx) error {
		if err := s.checkTitleFree(tx, row.Title, 0); err != nil {
			return err
		}

		// Sequences only move forward, so ids are never reused
		id, err := tx.Bucket(sequenceBucket).NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}
		row.ID = id
		return s.store.TxInsert(tx, row.ID, &row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return row.toModel(), nil
}

// Get retrieves a record by id
func (s *Store) Get(ctx context.Context, id int64) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, nil
	}

	var row boltRecord
	err := s.store.Get(uint64(id), &row)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return row.toModel(), nil
}

// Scan loads every record and applies the query in memory
func (s *Store) Scan(ctx context.Context, q store.Query) ([]*models.Record, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return q.Apply(records), nil
}

// Update merges p into the stored record inside one bolt transaction
func (s *Store) Update(ctx context.Context, id int64, p models.Patch) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, nil
	}

	var updated *models.Record
	err := s.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var row boltRecord
		err := s.store.TxGet(tx, uint64(id), &row)
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rec := row.toModel()
		p.Apply(rec)
		if rec.Title != row.Title {
			if err := s.checkTitleFree(tx, rec.Title, row.ID); err != nil {
				return err
			}
		}

		next := fromModel(rec)
		next.UpdatedAt = s.now()
		if err := s.store.TxUpdate(tx, next.ID, &next); err != nil {
			return err
		}
		updated = next.toModel()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update record %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a record and reports whether it existed
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if id <= 0 {
		return false, nil
	}

	err := s.store.Delete(uint64(id), &boltRecord{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete record %d: %w", id, err)
	}
	return true, nil
}

// IncrementRewatch bumps the rewatch counter inside one bolt transaction
func (s *Store) IncrementRewatch(ctx context.Context, id int64) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, nil
	}

	var updated *models.Record
	err := s.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var row boltRecord
		err := s.store.TxGet(tx, uint64(id), &row)
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		row.RewatchCount++
		row.UpdatedAt = s.now()
		if err := s.store.TxUpdate(tx, row.ID, &row); err != nil {
			return err
		}
		updated = row.toModel()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment rewatch count for %d: %w", id, err)
	}
	return updated, nil
}

// AverageRating averages the ratings that are present
func (s *Store) AverageRating(ctx context.Context) (*float64, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	var sum float64
	var n int
	for _, r := range records {
		if r.Rating != nil {
			sum += *r.Rating
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

// CountByStatus groups records by status
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Status]int64)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts, nil
}

func (s *Store) all(ctx context.Context) ([]*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []boltRecord
	if err := s.store.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	records := make([]*models.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records, nil
}

// checkTitleFree fails when another record already uses title
func (s *Store) checkTitleFree(tx *bbolt.Tx, title string, self uint64) error {
	var existing []boltRecord
	if err := s.store.TxFind(tx, &existing, bolthold.Where("Title").Eq(title)); err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	for _, e := range existing {
		if e.ID != self {
			return fmt.Errorf("%w: duplicate title", models.ErrConstraintViolation)
		}
	}
	return nil
}

func fromModel(r *models.Record) boltRecord {
	c := r.Clone()
	return boltRecord{
		ID:             uint64(c.ID),
		Title:          c.Title,
		Status:         c.Status,
		Rating:         c.Rating,
		Seasons:        c.Seasons,
		Episodes:       c.Episodes,
		CurrentSeason:  c.CurrentSeason,
		CurrentEpisode: c.CurrentEpisode,
		RewatchCount:   c.RewatchCount,
		LastWatchedAt:  c.LastWatchedAt,
		Note:           c.Note,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (row *boltRecord) toModel() *models.Record {
	r := &models.Record{
		ID:             int64(row.ID),
		Title:          row.Title,
		Status:         row.Status,
		Rating:         row.Rating,
		Seasons:        row.Seasons,
		Episodes:       row.Episodes,
		CurrentSeason:  row.CurrentSeason,
		CurrentEpisode: row.CurrentEpisode,
		RewatchCount:   row.RewatchCount,
		LastWatchedAt:  row.LastWatchedAt,
		Note:           row.Note,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if r.LastWatchedAt != nil {
		t := r.LastWatchedAt.UTC()
		r.LastWatchedAt = &t
	}
	return r.Clone()
}

var _ store.Store = (*Store)(nil)
