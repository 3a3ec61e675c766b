package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
)

// seriesRow is the persisted form of a record
type seriesRow struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Title          string `gorm:"not null;uniqueIndex"`
	TitleKey       string `gorm:"not null;index"` // case-folded title for search
	Status         string `gorm:"not null;index"`
	Rating         *float64
	Seasons        *int
	Episodes       *int
	CurrentSeason  *int
	CurrentEpisode *int
	RewatchCount   int        `gorm:"not null;default:0"`
	LastWatchedAt  *time.Time `gorm:"column:last_watched_date"`
	Note           *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (seriesRow) TableName() string {
	return "series"
}

// sortColumns maps sort fields to columns; nullable columns need explicit
// NULL placement because SQLite and PostgreSQL disagree on the default
var sortColumns = map[models.SortField]struct {
	column   string
	nullable bool
}{
	models.SortByTitle:          {"title", false},
	models.SortByStatus:         {"status", false},
	models.SortByRating:         {"rating", true},
	models.SortBySeasons:        {"seasons", true},
	models.SortByEpisodes:       {"episodes", true},
	models.SortByCurrentSeason:  {"current_season", true},
	models.SortByCurrentEpisode: {"current_episode", true},
	models.SortByRewatchCount:   {"rewatch_count", false},
	models.SortByLastWatched:    {"last_watched_date", true},
	models.SortByCreatedAt:      {"created_at", false},
	models.SortByUpdatedAt:      {"updated_at", false},
}

func fromModel(r *models.Record) seriesRow {
	c := r.Clone()
	return seriesRow{
		ID:             c.ID,
		Title:          c.Title,
		TitleKey:       store.FoldTitle(c.Title),
		Status:         string(c.Status),
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

func (row *seriesRow) toModel() *models.Record {
	r := &models.Record{
		ID:             row.ID,
		Title:          row.Title,
		Status:         models.Status(row.Status),
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
	return r
}

// Insert creates a new series row
func (s *Store) Insert(ctx context.Context, r *models.Record) (*models.Record, error) {
	row := fromModel(r)
	row.ID = 0
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	if row.LastWatchedAt != nil {
		t := row.LastWatchedAt.UTC().Truncate(time.Microsecond)
		row.LastWatchedAt = &t
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "failed to insert record")
	}
	return row.toModel(), nil
}

// Get retrieves a record by id
func (s *Store) Get(ctx context.Context, id int64) (*models.Record, error) {
	var row seriesRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return row.toModel(), nil
}

// Scan returns the records matching q in a total order
func (s *Store) Scan(ctx context.Context, q store.Query) ([]*models.Record, error) {
	tx := s.db.WithContext(ctx).Model(&seriesRow{})
	tx = applyFilter(tx, q.Filter)
	tx = applySort(tx, q.Sort)
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []seriesRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	records := make([]*models.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records, nil
}

func applyFilter(tx *gorm.DB, f store.Filter) *gorm.DB {
	if f.Status != nil {
		tx = tx.Where("status = ?", string(*f.Status))
	}
	if f.RatedOnly || f.MinRating != nil || f.MaxRating != nil {
		tx = tx.Where("rating IS NOT NULL")
	}
	if f.MinRating != nil {
		tx = tx.Where("rating >= ?", *f.MinRating)
	}
	if f.MaxRating != nil {
		tx = tx.Where("rating <= ?", *f.MaxRating)
	}
	if f.WatchedOnly {
		tx = tx.Where("last_watched_date IS NOT NULL")
	}
	if f.TitleContains != "" {
		pattern := "%" + escapeLike(store.FoldTitle(f.TitleContains)) + "%"
		tx = tx.Where(`title_key LIKE ? ESCAPE '\'`, pattern)
	}
	return tx
}

func applySort(tx *gorm.DB, sort *models.Sort) *gorm.DB {
	if sort == nil {
		return tx.Order("id ASC")
	}
	if sort.Field == models.SortByID {
		if sort.Descending {
			return tx.Order("id DESC")
		}
		return tx.Order("id ASC")
	}

	col, ok := sortColumns[sort.Field]
	if !ok {
		return tx.Order("id ASC")
	}
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	if col.nullable {
		// NULL is the smallest value: first ascending, last descending
		nulls := "DESC"
		if sort.Descending {
			nulls = "ASC"
		}
		tx = tx.Order(fmt.Sprintf("(%s IS NULL) %s", col.column, nulls))
	}
	return tx.Order(fmt.Sprintf("%s %s", col.column, dir)).Order("id ASC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Update merges p into the stored record inside one transaction
func (s *Store) Update(ctx context.Context, id int64, p models.Patch) (*models.Record, error) {
	var updated *models.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row seriesRow
		err := tx.First(&row, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load record %d: %w", id, err)
		}

		rec := row.toModel()
		p.Apply(rec)
		next := fromModel(rec)
		next.UpdatedAt = s.now()
		if next.LastWatchedAt != nil {
			t := next.LastWatchedAt.UTC().Truncate(time.Microsecond)
			next.LastWatchedAt = &t
		}

		res := tx.Model(&seriesRow{ID: id}).Select("*").Omit("id", "created_at").Updates(&next)
		if res.Error != nil {
			return translate(res.Error, "failed to update record")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = next.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a record and reports whether it existed
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&seriesRow{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete record %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementRewatch bumps the rewatch counter with a single UPDATE
func (s *Store) IncrementRewatch(ctx context.Context, id int64) (*models.Record, error) {
	var updated *models.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&seriesRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"rewatch_count": gorm.Expr("rewatch_count + 1"),
			"updated_at":    s.now(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to increment rewatch count for %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var row seriesRow
		if err := tx.First(&row, id).Error; err != nil {
			return fmt.Errorf("failed to reload record %d: %w", id, err)
		}
		updated = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AverageRating computes AVG(rating); SQL already skips NULL ratings
func (s *Store) AverageRating(ctx context.Context) (*float64, error) {
	var avg sql.NullFloat64
	row := s.db.WithContext(ctx).Model(&seriesRow{}).Select("AVG(rating)").Row()
	if err := row.Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to compute average rating: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// CountByStatus groups records by status
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&seriesRow{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count records by status: %w", err)
	}

	counts := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		counts[models.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// translate maps driver uniqueness failures onto models.ErrConstraintViolation
func translate(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w: duplicate title", msg, models.ErrConstraintViolation)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w: duplicate title", msg, models.ErrConstraintViolation)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ store.Store = (*Store)(nil)
