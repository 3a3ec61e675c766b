// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
)

// Factory returns an empty store; the suite closes it when the test ends
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the shared contract
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertGetRoundTrip", testInsertGetRoundTrip},
		{"InsertAssignsIncreasingIDs", testInsertAssignsIncreasingIDs},
		{"DuplicateTitle", testDuplicateTitle},
		{"GetAbsent", testGetAbsent},
		{"DeleteThenGet", testDeleteThenGet},
		{"UpdatePartial", testUpdatePartial},
		{"UpdateAbsent", testUpdateAbsent},
		{"UpdateDuplicateTitle", testUpdateDuplicateTitle},
		{"IncrementRewatch", testIncrementRewatch},
		{"ScanByStatus", testScanByStatus},
		{"ScanRatingRange", testScanRatingRange},
		{"ScanTitleContains", testScanTitleContains},
		{"ScanTitleContainsLiteralWildcards", testScanTitleContainsLiteralWildcards},
		{"ScanWindow", testScanWindow},
		{"SortReverses", testSortReverses},
		{"SortNullsAndTies", testSortNullsAndTies},
		{"AverageRating", testAverageRating},
		{"CountByStatus", testCountByStatus},
		{"MaintainAndPing", testMaintainAndPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func insert(t *testing.T, s store.Store, r models.Record) *models.Record {
	t.Helper()
	created, err := s.Insert(context.Background(), &r)
	require.NoError(t, err)
	require.NotNil(t, created)
	return created
}

// AssertSameRecord compares two records field by field, times by instant
func AssertSameRecord(t *testing.T, want, got *models.Record) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Rating, got.Rating)
	assert.Equal(t, want.Seasons, got.Seasons)
	assert.Equal(t, want.Episodes, got.Episodes)
	assert.Equal(t, want.CurrentSeason, got.CurrentSeason)
	assert.Equal(t, want.CurrentEpisode, got.CurrentEpisode)
	assert.Equal(t, want.RewatchCount, got.RewatchCount)
	assert.Equal(t, want.Note, got.Note)
	if want.LastWatchedAt == nil {
		assert.Nil(t, got.LastWatchedAt)
	} else {
		require.NotNil(t, got.LastWatchedAt)
		assert.True(t, want.LastWatchedAt.Equal(*got.LastWatchedAt), "last watched %v != %v", want.LastWatchedAt, got.LastWatchedAt)
	}
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
}

func titles(records []*models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func testInsertGetRoundTrip(t *testing.T, s store.Store) {
	watched := time.Date(2024, 5, 17, 21, 30, 0, 0, time.UTC)
	created := insert(t, s, models.Record{
		Title:          "Breaking Bad",
		Status:         models.StatusWatched,
		Rating:         models.Ptr(9.9),
		Seasons:        models.Ptr(5),
		Episodes:       models.Ptr(62),
		CurrentSeason:  models.Ptr(5),
		CurrentEpisode: models.Ptr(16),
		RewatchCount:   1,
		LastWatchedAt:  &watched,
		Note:           models.Ptr("say my name"),
	})
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	AssertSameRecord(t, created, got)

	// A zero rating is a rating, not an absent one
	zero := insert(t, s, models.Record{Title: "Zero", Status: models.StatusWatched, Rating: models.Ptr(0.0)})
	got, err = s.Get(context.Background(), zero.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 0.0, *got.Rating)

	unrated := insert(t, s, models.Record{Title: "Unrated", Status: models.StatusUpcoming})
	got, err = s.Get(context.Background(), unrated.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
}

func testInsertAssignsIncreasingIDs(t *testing.T, s store.Store) {
	a := insert(t, s, models.Record{Title: "A", Status: models.StatusUpcoming})
	b := insert(t, s, models.Record{Title: "B", Status: models.StatusUpcoming})
	assert.Greater(t, b.ID, a.ID)

	// Deleting the newest record must not free its id for reuse
	ok, err := s.Delete(context.Background(), b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	c := insert(t, s, models.Record{Title: "C", Status: models.StatusUpcoming})
	assert.Greater(t, c.ID, b.ID)
}

func testDuplicateTitle(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "Ozark", Status: models.StatusWatched})
	_, err := s.Insert(context.Background(), &models.Record{Title: "Ozark", Status: models.StatusUpcoming})
	require.ErrorIs(t, err, models.ErrConstraintViolation)
}

func testGetAbsent(t *testing.T, s store.Store) {
	got, err := s.Get(context.Background(), 4242)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDeleteThenGet(t *testing.T, s store.Store) {
	r := insert(t, s, models.Record{Title: "Lost", Status: models.StatusWatched})

	ok, err := s.Delete(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = s.Delete(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testUpdatePartial(t *testing.T, s store.Store) {
	r := insert(t, s, models.Record{
		Title:        "Dark",
		Status:       models.StatusHalfWatched,
		Rating:       models.Ptr(7.0),
		Seasons:      models.Ptr(3),
		RewatchCount: 3,
	})

	updated, err := s.Update(context.Background(), r.ID, models.Patch{
		Rating:       models.Some(models.Ptr(8.5)),
		RewatchCount: models.Some(1),
		Note:         models.Some(models.Ptr("time travel")),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "Dark", updated.Title)
	assert.Equal(t, models.StatusHalfWatched, updated.Status)
	assert.Equal(t, models.Ptr(8.5), updated.Rating)
	assert.Equal(t, models.Ptr(3), updated.Seasons)
	assert.Equal(t, 3, updated.RewatchCount, "rewatch count must not decrease")
	assert.Equal(t, models.Ptr("time travel"), updated.Note)

	got, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)
	AssertSameRecord(t, updated, got)

	// Setting a nullable field to null clears it
	updated, err = s.Update(context.Background(), r.ID, models.Patch{Rating: models.Some[*float64](nil)})
	require.NoError(t, err)
	assert.Nil(t, updated.Rating)
}

func testUpdateAbsent(t *testing.T, s store.Store) {
	got, err := s.Update(context.Background(), 999, models.Patch{Title: models.Some("x")})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testUpdateDuplicateTitle(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "Fargo", Status: models.StatusWatched})
	b := insert(t, s, models.Record{Title: "Atlanta", Status: models.StatusWatched})

	_, err := s.Update(context.Background(), b.ID, models.Patch{Title: models.Some("Fargo")})
	require.ErrorIs(t, err, models.ErrConstraintViolation)

	// Keeping one's own title is fine
	_, err = s.Update(context.Background(), b.ID, models.Patch{Title: models.Some("Atlanta")})
	require.NoError(t, err)
}

func testIncrementRewatch(t *testing.T, s store.Store) {
	r := insert(t, s, models.Record{Title: "Friends", Status: models.StatusWatched, RewatchCount: 2})

	for _, n := range []int{0, 1, 5} {
		before, err := s.Get(context.Background(), r.ID)
		require.NoError(t, err)

		var last *models.Record
		for i := 0; i < n; i++ {
			last, err = s.IncrementRewatch(context.Background(), r.ID)
			require.NoError(t, err)
			require.NotNil(t, last)
		}

		after, err := s.Get(context.Background(), r.ID)
		require.NoError(t, err)
		assert.Equal(t, before.RewatchCount+n, after.RewatchCount, "n=%d", n)
		if last != nil {
			assert.Equal(t, after.RewatchCount, last.RewatchCount)
		}
	}

	got, err := s.IncrementRewatch(context.Background(), 777)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testScanByStatus(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "A", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "B", Status: models.StatusUpcoming})
	insert(t, s, models.Record{Title: "C", Status: models.StatusWatched})

	watched := models.StatusWatched
	got, err := s.Scan(context.Background(), store.Query{Filter: store.Filter{Status: &watched}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, titles(got))

	half := models.StatusHalfWatched
	got, err = s.Scan(context.Background(), store.Query{Filter: store.Filter{Status: &half}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testScanRatingRange(t *testing.T, s store.Store) {
	ratings := []*float64{models.Ptr(2.0), nil, models.Ptr(5.0), models.Ptr(7.5), models.Ptr(10.0), models.Ptr(0.0)}
	for i, r := range ratings {
		insert(t, s, models.Record{Title: fmt.Sprintf("show-%d", i), Status: models.StatusWatched, Rating: r})
	}

	cases := []struct {
		min, max float64
		want     []string
	}{
		{0, 10, []string{"show-0", "show-2", "show-3", "show-4", "show-5"}},
		{5, 7.5, []string{"show-2", "show-3"}},
		{7.6, 9.9, []string{}},
		{0, 0, []string{"show-5"}},
		{8, 3, []string{}},
	}
	for _, c := range cases {
		got, err := s.Scan(context.Background(), store.Query{Filter: store.Filter{MinRating: &c.min, MaxRating: &c.max}})
		require.NoError(t, err)
		assert.Equal(t, c.want, titles(got), "range [%v,%v]", c.min, c.max)
	}
}

func testScanTitleContains(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "Breaking Bad", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "Better Call Saul", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "Ozark", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "ÉLITE", Status: models.StatusUpcoming})

	got, err := s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "br"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Breaking Bad"}, titles(got))

	got, err = s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "BE"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Better Call Saul"}, titles(got))

	got, err = s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "ark"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ozark"}, titles(got))

	got, err = s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "élit"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉLITE"}, titles(got))
}

func testScanTitleContainsLiteralWildcards(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "100% Fresh", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "1000 Ways", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "snake_case", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "snakes", Status: models.StatusWatched})

	got, err := s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "0%"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Fresh"}, titles(got))

	got, err = s.Scan(context.Background(), store.Query{Filter: store.Filter{TitleContains: "e_c"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case"}, titles(got))
}

func testScanWindow(t *testing.T, s store.Store) {
	for i := 0; i < 5; i++ {
		insert(t, s, models.Record{Title: fmt.Sprintf("w%d", i), Status: models.StatusUpcoming})
	}

	got, err := s.Scan(context.Background(), store.Query{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, titles(got))

	got, err = s.Scan(context.Background(), store.Query{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Scan(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func testSortReverses(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "Chernobyl", Status: models.StatusWatched, Rating: models.Ptr(9.4), Seasons: models.Ptr(1)})
	insert(t, s, models.Record{Title: "Andor", Status: models.StatusHalfWatched, Rating: models.Ptr(8.4), Seasons: models.Ptr(2)})
	insert(t, s, models.Record{Title: "Barry", Status: models.StatusUpcoming, Rating: models.Ptr(8.8), Seasons: models.Ptr(4)})

	for _, field := range []models.SortField{models.SortByTitle, models.SortByRating, models.SortBySeasons, models.SortByStatus, models.SortByID} {
		asc, err := s.Scan(context.Background(), store.Query{Sort: &models.Sort{Field: field}})
		require.NoError(t, err)
		desc, err := s.Scan(context.Background(), store.Query{Sort: &models.Sort{Field: field, Descending: true}})
		require.NoError(t, err)

		reversed := titles(desc)
		slices.Reverse(reversed)
		assert.Equal(t, titles(asc), reversed, "field %s", field)
	}

	asc, err := s.Scan(context.Background(), store.Query{Sort: &models.Sort{Field: models.SortByTitle}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Andor", "Barry", "Chernobyl"}, titles(asc))
}

func testSortNullsAndTies(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "t1", Status: models.StatusWatched, Rating: models.Ptr(8.0)})
	insert(t, s, models.Record{Title: "t2", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "t3", Status: models.StatusWatched, Rating: models.Ptr(8.0)})
	insert(t, s, models.Record{Title: "t4", Status: models.StatusWatched, Rating: models.Ptr(6.0)})

	asc, err := s.Scan(context.Background(), store.Query{Sort: &models.Sort{Field: models.SortByRating}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t4", "t1", "t3"}, titles(asc))

	// Ties stay in id order in both directions
	desc, err := s.Scan(context.Background(), store.Query{Sort: &models.Sort{Field: models.SortByRating, Descending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3", "t4", "t2"}, titles(desc))
}

func testAverageRating(t *testing.T, s store.Store) {
	avg, err := s.AverageRating(context.Background())
	require.NoError(t, err)
	assert.Nil(t, avg, "empty collection has no average")

	insert(t, s, models.Record{Title: "unrated", Status: models.StatusUpcoming})
	avg, err = s.AverageRating(context.Background())
	require.NoError(t, err)
	assert.Nil(t, avg, "unrated records do not count")

	insert(t, s, models.Record{Title: "a", Status: models.StatusWatched, Rating: models.Ptr(9.0)})
	insert(t, s, models.Record{Title: "b", Status: models.StatusWatched, Rating: models.Ptr(6.0)})
	insert(t, s, models.Record{Title: "c", Status: models.StatusWatched, Rating: models.Ptr(0.0)})
	avg, err = s.AverageRating(context.Background())
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 5.0, *avg, 1e-9)
}

func testCountByStatus(t *testing.T, s store.Store) {
	counts, err := s.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)

	insert(t, s, models.Record{Title: "a", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "b", Status: models.StatusWatched})
	insert(t, s, models.Record{Title: "c", Status: models.StatusUpcoming})

	counts, err = s.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int64{
		models.StatusWatched:  2,
		models.StatusUpcoming: 1,
	}, counts)
}

func testMaintainAndPing(t *testing.T, s store.Store) {
	insert(t, s, models.Record{Title: "a", Status: models.StatusWatched})
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Maintain(context.Background()))

	got, err := s.Scan(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
