package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amaumene/watchtrack/internal/models"
)

func sample() []*models.Record {
	watched := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []*models.Record{
		{ID: 3, Title: "Ozark", Status: models.StatusWatched, Rating: models.Ptr(8.0), LastWatchedAt: &watched},
		{ID: 1, Title: "Breaking Bad", Status: models.StatusWatched, Rating: models.Ptr(9.5)},
		{ID: 2, Title: "Better Call Saul", Status: models.StatusHalfWatched},
		{ID: 4, Title: "Severance", Status: models.StatusUpcoming, Rating: models.Ptr(8.0)},
	}
}

func ids(records []*models.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestQueryApplyDefaultsToIDOrder(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(Query{}.Apply(sample())))
}

func TestQueryApplyFilters(t *testing.T) {
	watched := models.StatusWatched
	lo, hi := 8.0, 9.0

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"status", Filter{Status: &watched}, []int64{1, 3}},
		{"rating range", Filter{MinRating: &lo, MaxRating: &hi}, []int64{3, 4}},
		{"rated only", Filter{RatedOnly: true}, []int64{1, 3, 4}},
		{"watched only", Filter{WatchedOnly: true}, []int64{3}},
		{"title", Filter{TitleContains: "SAUL"}, []int64{2}},
		{"combined", Filter{Status: &watched, MinRating: &lo, MaxRating: &hi}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Query{Filter: tt.filter}.Apply(sample())))
		})
	}
}

func TestQueryApplySortAndWindow(t *testing.T) {
	q := Query{Sort: &models.Sort{Field: models.SortByRating, Descending: true}}
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(q.Apply(sample())))

	q.Offset, q.Limit = 1, 2
	assert.Equal(t, []int64{3, 4}, ids(q.Apply(sample())))

	q.Offset = 9
	assert.Empty(t, q.Apply(sample()))
}

func TestCompareByIDDescending(t *testing.T) {
	q := Query{Sort: &models.Sort{Field: models.SortByID, Descending: true}}
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(q.Apply(sample())))
}

func TestFoldTitle(t *testing.T) {
	assert.Equal(t, FoldTitle("élite"), FoldTitle("ÉLITE"))
	assert.Equal(t, "breaking bad", FoldTitle("Breaking Bad"))
}
