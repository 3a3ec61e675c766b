package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/models"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		StoreBackend:        backend,
		DatabaseFile:        filepath.Join(t.TempDir(), "watchtrack.db"),
		StoreConnectTimeout: time.Second,
		ServerPort:          "0",
		CORSOrigins:         "*",
		StatsCacheTTL:       time.Minute,
		LogLevel:            "error",
		LogFormat:           "text",
	}
}

func TestInitializeToolsPerBackend(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			tools, cleanup, err := InitializeTools(ctx, testConfig(t, backend))
			require.NoError(t, err)
			defer cleanup()

			created, err := tools.Records.Create(ctx, &models.Record{Title: "Dark", Status: models.StatusUpcoming})
			require.NoError(t, err)

			got, err := tools.Records.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Dark", got.Title)
			require.NoError(t, tools.Store.Ping(ctx))
		})
	}
}

func TestInitializeApp(t *testing.T) {
	a, cleanup, err := InitializeApp(context.Background(), testConfig(t, config.BackendSQLite))
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Scheduler)
	assert.NotNil(t, a.Records)
}

func TestProvideStoreRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t, "mongo")
	cfg.StoreConnectTimeout = time.Minute

	start := time.Now()
	_, _, err := ProvideStore(context.Background(), cfg, ProvideLogger(cfg))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
