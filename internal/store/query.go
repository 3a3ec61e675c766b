package store

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/amaumene/watchtrack/internal/models"
)

// FoldTitle returns the case-folded form of a title used for
// case-insensitive search. Both the stored key and the search term go
// through it, so "élite" matches "ÉLITE".
func FoldTitle(s string) string {
	return cases.Fold().String(s)
}

// Match reports whether r satisfies every predicate of f
func (f Filter) Match(r *models.Record) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if (f.RatedOnly || f.MinRating != nil || f.MaxRating != nil) && r.Rating == nil {
		return false
	}
	if f.MinRating != nil && *r.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && *r.Rating > *f.MaxRating {
		return false
	}
	if f.WatchedOnly && r.LastWatchedAt == nil {
		return false
	}
	if f.TitleContains != "" && !strings.Contains(FoldTitle(r.Title), FoldTitle(f.TitleContains)) {
		return false
	}
	return true
}

// Apply filters, orders and windows records in memory. Backends without a
// query planner use it; the relational backend pushes the same semantics
// down into SQL.
func (q Query) Apply(records []*models.Record) []*models.Record {
	out := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if q.Filter.Match(r) {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b *models.Record) int {
		return Compare(a, b, q.Sort)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*models.Record{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

// Compare orders two records by s, breaking ties by id ascending.
// Absent values sort as the smallest value.
func Compare(a, b *models.Record, s *models.Sort) int {
	if s != nil && s.Field != models.SortByID {
		c := compareField(a, b, s.Field)
		if s.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	} else if s != nil && s.Descending {
		return cmp.Compare(b.ID, a.ID)
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareField(a, b *models.Record, f models.SortField) int {
	switch f {
	case models.SortByTitle:
		return cmp.Compare(a.Title, b.Title)
	case models.SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case models.SortByRating:
		return comparePtr(a.Rating, b.Rating, cmp.Compare[float64])
	case models.SortBySeasons:
		return comparePtr(a.Seasons, b.Seasons, cmp.Compare[int])
	case models.SortByEpisodes:
		return comparePtr(a.Episodes, b.Episodes, cmp.Compare[int])
	case models.SortByCurrentSeason:
		return comparePtr(a.CurrentSeason, b.CurrentSeason, cmp.Compare[int])
	case models.SortByCurrentEpisode:
		return comparePtr(a.CurrentEpisode, b.CurrentEpisode, cmp.Compare[int])
	case models.SortByRewatchCount:
		return cmp.Compare(a.RewatchCount, b.RewatchCount)
	case models.SortByLastWatched:
		return comparePtr(a.LastWatchedAt, b.LastWatchedAt, time.Time.Compare)
	case models.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case models.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func comparePtr[T any](a, b *T, compare func(T, T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compare(*a, *b)
}
