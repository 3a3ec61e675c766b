package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/amaumene/watchtrack/internal/api/middleware"
	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/controllers"
	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store/sqlstore"
)

type testServer struct {
	app     *fiber.App
	records *controllers.RecordsController
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := sqlstore.Open(sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	records := controllers.NewRecordsController(s, time.Minute, noop.NewTracerProvider().Tracer("test"), logger)
	cfg := &config.Config{ServerPort: "0", CORSOrigins: "*"}
	return &testServer{
		app:     NewServer(cfg, records, s, logger).App(),
		records: records,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (ts *testServer) create(t *testing.T, body map[string]interface{}) models.Record {
	t.Helper()
	status, data := ts.do(t, http.MethodPost, "/records", body)
	require.Equal(t, http.StatusOK, status, string(data))

	var rec models.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	return rec
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func detail(t *testing.T, data []byte) string {
	t.Helper()
	return decode[map[string]string](t, data)["detail"]
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func titles(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestCreateThenGet(t *testing.T) {
	ts := newTestServer(t)

	created := ts.create(t, map[string]interface{}{"title": "Dark", "status": "Upcoming", "rating": 8.7})
	assert.Positive(t, created.ID)
	assert.Equal(t, "Dark", created.Title)
	assert.Equal(t, models.StatusUpcoming, created.Status)
	assert.Equal(t, 8.7, *created.Rating)
	assert.Zero(t, created.RewatchCount)

	status, data := ts.do(t, http.MethodGet, "/records/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[models.Record](t, data)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Dark", got.Title)
	assert.Equal(t, 8.7, *got.Rating)
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty body", nil},
		{"malformed json", `{"title":`},
		{"blank title", map[string]interface{}{"title": "  ", "status": "Watched"}},
		{"unknown status", map[string]interface{}{"title": "Dark", "status": "Binged"}},
		{"rating above range", map[string]interface{}{"title": "Dark", "status": "Watched", "rating": 11}},
		{"negative seasons", map[string]interface{}{"title": "Dark", "status": "Watched", "seasons": -1}},
		{"unknown field", map[string]interface{}{"title": "Dark", "status": "Watched", "genre": "sci-fi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := ts.do(t, http.MethodPost, "/records", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, detail(t, data))
		})
	}
}

func TestCreateAcceptsStatusAliases(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, map[string]interface{}{"title": "Severance", "status": "watching"})
	assert.Equal(t, models.StatusHalfWatched, created.Status)
}

func TestCreateDuplicateTitle(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]interface{}{"title": "Dark", "status": "Upcoming"})

	status, data := ts.do(t, http.MethodPost, "/records", map[string]interface{}{"title": "Dark", "status": "Watched"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "A record with this title already exists", detail(t, data))
}

func TestGetMissingAndInvalidID(t *testing.T) {
	ts := newTestServer(t)

	status, data := ts.do(t, http.MethodGet, "/records/999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Record not found", detail(t, data))

	status, _ = ts.do(t, http.MethodGet, "/records/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/records/0", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListWindow(t *testing.T) {
	ts := newTestServer(t)
	for _, title := range []string{"A", "B", "C"} {
		ts.create(t, map[string]interface{}{"title": title, "status": "Upcoming"})
	}

	status, data := ts.do(t, http.MethodGet, "/records?skip=1&limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"B"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Record](t, data), 3)

	status, data = ts.do(t, http.MethodGet, "/records?limit=0", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", string(data))

	for _, q := range []string{"limit=-1", "limit=1001", "skip=-1", "limit=ten"} {
		status, _ = ts.do(t, http.MethodGet, "/records?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}
}

func TestReplaceKeepsRewatchCount(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, map[string]interface{}{"title": "Lost", "status": "Watched", "rewatch_count": 2})

	status, data := ts.do(t, http.MethodPut, "/records/"+itoa(created.ID), map[string]interface{}{
		"title":         "Lost",
		"status":        "Watched",
		"rating":        6.5,
		"rewatch_count": 0,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	got := decode[models.Record](t, data)
	assert.Equal(t, 2, got.RewatchCount)
	assert.Equal(t, 6.5, *got.Rating)

	status, _ = ts.do(t, http.MethodPut, "/records/999", map[string]interface{}{"title": "X", "status": "Watched"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPatch(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, map[string]interface{}{"title": "Dark", "status": "Half-watched", "rating": 8.7, "note": "German"})
	path := "/records/" + itoa(created.ID)

	status, data := ts.do(t, http.MethodPatch, path, map[string]interface{}{"current_season": 2, "note": nil})
	require.Equal(t, http.StatusOK, status, string(data))
	got := decode[models.Record](t, data)
	assert.Equal(t, 2, *got.CurrentSeason)
	assert.Nil(t, got.Note)
	assert.Equal(t, 8.7, *got.Rating)
	assert.Equal(t, models.StatusHalfWatched, got.Status)

	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"genre": "sci-fi"},
		map[string]interface{}{"title": nil},
		map[string]interface{}{"rating": -1},
		map[string]interface{}{"status": "Binged"},
	} {
		status, _ = ts.do(t, http.MethodPatch, path, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, map[string]interface{}{"title": "Dark", "status": "Upcoming"})
	path := "/records/" + itoa(created.ID)

	status, data := ts.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Record deleted", decode[map[string]string](t, data)["message"])

	status, _ = ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]interface{}{"title": "Breaking Bad", "status": "Watched", "rating": 9.5})
	ts.create(t, map[string]interface{}{"title": "Better Call Saul", "status": "Half-watched", "rating": 8.9})
	ts.create(t, map[string]interface{}{"title": "Ozark", "status": "Upcoming"})

	status, data := ts.do(t, http.MethodGet, "/records/status/Half-watched", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Better Call Saul"}, titles(decode[[]models.Record](t, data)))

	status, _ = ts.do(t, http.MethodGet, "/records/status/Binged", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = ts.do(t, http.MethodGet, "/records/rating/range?min=9&max=10", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Breaking Bad"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records/rating/range?min_rating=-5&max_rating=9", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Better Call Saul"}, titles(decode[[]models.Record](t, data)))

	status, _ = ts.do(t, http.MethodGet, "/records/rating/range?min=high", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	for _, title := range []string{"Breaking Bad", "Better Call Saul", "Ozark"} {
		ts.create(t, map[string]interface{}{"title": title, "status": "Watched"})
	}

	status, data := ts.do(t, http.MethodGet, "/records/search?query=BE", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Better Call Saul"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records/search?query=ar", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Ozark"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records/search?query=b", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, detail(t, data), "at least 2")
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]interface{}{"title": "Ozark", "status": "Watched"})

	status, data := ts.do(t, http.MethodGet, "/records/suggest?query=ozrak", nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[[]controllers.Suggestion](t, data)
	require.Len(t, got, 1)
	assert.Equal(t, "Ozark", got[0].Title)
}

func TestSorted(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]interface{}{"title": "B", "status": "Watched", "rating": 7})
	ts.create(t, map[string]interface{}{"title": "A", "status": "Watched", "rating": 9})
	ts.create(t, map[string]interface{}{"title": "C", "status": "Watched"})

	status, data := ts.do(t, http.MethodGet, "/records/sorted", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"A", "B", "C"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records/sorted?sort_by=rating&descending=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"A", "B", "C"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/records/sorted?sort_by=rating", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"C", "B", "A"}, titles(decode[[]models.Record](t, data)))

	status, _ = ts.do(t, http.MethodGet, "/records/sorted?sort_by=popularity", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/records/sorted?descending=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMarkWatched(t *testing.T) {
	ts := newTestServer(t)
	now := time.Date(2024, 5, 4, 21, 0, 0, 0, time.UTC)
	ts.records.SetClock(func() time.Time { return now })

	created := ts.create(t, map[string]interface{}{"title": "Dark", "status": "Half-watched", "rating": 8.0, "current_season": 2})

	status, data := ts.do(t, http.MethodPut, "/records/"+itoa(created.ID)+"/watch?rating=9.0", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	got := decode[models.Record](t, data)
	assert.Equal(t, models.StatusWatched, got.Status)
	assert.Equal(t, 9.0, *got.Rating)
	assert.Equal(t, 2, *got.CurrentSeason)
	require.NotNil(t, got.LastWatchedAt)
	assert.True(t, now.Equal(*got.LastWatchedAt))

	status, _ = ts.do(t, http.MethodPut, "/records/"+itoa(created.ID)+"/watch?rating=12", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPut, "/records/999/watch", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIncrementRewatch(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, map[string]interface{}{"title": "Dark", "status": "Watched"})

	var got models.Record
	for i := 0; i < 3; i++ {
		status, data := ts.do(t, http.MethodPut, "/records/"+itoa(created.ID)+"/rewatch", nil)
		require.Equal(t, http.StatusOK, status)
		got = decode[models.Record](t, data)
	}
	assert.Equal(t, 3, got.RewatchCount)

	status, _ := ts.do(t, http.MethodPut, "/records/999/rewatch", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)

	status, data := ts.do(t, http.MethodGet, "/stats/average-rating", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"average_rating": null}`, string(data))

	ts.create(t, map[string]interface{}{"title": "A", "status": "Watched", "rating": 9})
	ts.create(t, map[string]interface{}{"title": "B", "status": "Watched", "rating": 8})
	ts.create(t, map[string]interface{}{"title": "C", "status": "Upcoming"})

	status, data = ts.do(t, http.MethodGet, "/stats/average-rating", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"average_rating": 8.5}`, string(data))

	status, data = ts.do(t, http.MethodGet, "/stats/count-by-status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"Watched": 2, "Half-watched": 0, "Upcoming": 1}`, string(data))

	status, data = ts.do(t, http.MethodGet, "/stats/top-rated?limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"A"}, titles(decode[[]models.Record](t, data)))

	status, data = ts.do(t, http.MethodGet, "/stats/recently-watched", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.Record](t, data))

	status, _ = ts.do(t, http.MethodGet, "/stats/top-rated?limit=101", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	status, data := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status": "healthy"}`, string(data))

	status, data = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "watchtrack_http_requests_total")
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(middleware.RequestIDHeader))

	resp, err = ts.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	status, data := ts.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, detail(t, data))
}
