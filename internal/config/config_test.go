package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := setup(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, filepath.Join(dir, "watchtrack.db"), cfg.DatabaseFile)
	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, "*", cfg.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.StoreConnectTimeout)
	assert.Equal(t, "0 4 * * *", cfg.MaintenanceSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 1.0, cfg.TracingSampleRate)
}

func TestLoadFromEnvironment(t *testing.T) {
	setup(t)
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://watchtrack@localhost/watchtrack?sslmode=disable")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STATS_CACHE_TTL", "0s")
	t.Setenv("MAINTENANCE_SCHEDULE", "")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Zero(t, cfg.StatsCacheTTL)
	assert.Empty(t, cfg.MaintenanceSchedule)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"bad schedule", map[string]string{"MAINTENANCE_SCHEDULE": "every night"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"tracing without endpoint", map[string]string{"TRACING_ENABLED": "true"}},
		{"sample rate out of range", map[string]string{"TRACING_SAMPLE_RATE": "1.5"}},
		{"negative cache ttl", map[string]string{"STATS_CACHE_TTL": "-1s"}},
		{"unparsable cache ttl", map[string]string{"STATS_CACHE_TTL": "30 seconds"}},
		{"unitless connect timeout", map[string]string{"STORE_CONNECT_TIMEOUT": "30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
