package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	names := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		names = append(names, e.Field)
	}
	return names
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		dataDir := t.TempDir()
		cfg, err := Load(filepath.Join(dataDir, "nope.yaml"), dataDir)
		require.NoError(t, err)

		assert.Equal(t, StoreSQLite, cfg.Store.Driver)
		assert.Equal(t, RealtimeBus, cfg.Realtime.Driver)
		assert.Equal(t, "task-attachments", cfg.Storage.Bucket)
		assert.Equal(t, DefaultMaxAttachmentSize, cfg.Storage.MaxSizeBytes)
		assert.Equal(t, dataDir, cfg.DataDir)
		assert.Equal(t, filepath.Join(dataDir, "blobs"), cfg.StorageRoot())
		assert.Equal(t, 7*24*time.Hour, cfg.Notifications.Retention)
	})

	t.Run("file overrides and zero values get defaults", func(t *testing.T) {
		path := writeConfig(t, `
store:
  driver: postgres
  postgres_dsn: postgres://localhost/casetrack
realtime:
  driver: kafka
  kafka:
    brokers: [localhost:9092]
storage:
  root: /srv/blobs
http:
  listen: 127.0.0.1:9000
timezone: Europe/London
theme: gruvbox
notifications:
  retention: 48h
`)
		cfg, err := Load(path, t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, StorePostgres, cfg.Store.Driver)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Realtime.Kafka.Brokers)
		assert.Equal(t, "casetrack.tasks", cfg.Realtime.Kafka.Topic)
		assert.Equal(t, "/srv/blobs", cfg.StorageRoot())
		assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Listen)
		assert.Equal(t, 10, cfg.Store.SQLite.MaxOpenConns)
		assert.Equal(t, "Europe/London", cfg.Timezone)
		assert.Equal(t, "gruvbox", cfg.Theme)
		assert.Equal(t, 48*time.Hour, cfg.Notifications.Retention)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store: [oops"), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config file")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store:\n  driver: mysql\n"), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *Config)
		wantFields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:       "empty data dir",
			mutate:     func(c *Config) { c.DataDir = "" },
			wantFields: []string{"data_dir"},
		},
		{
			name:       "unknown store driver",
			mutate:     func(c *Config) { c.Store.Driver = "mysql" },
			wantFields: []string{"store.driver"},
		},
		{
			name:       "postgres store without dsn",
			mutate:     func(c *Config) { c.Store.Driver = StorePostgres },
			wantFields: []string{"store.postgres_dsn"},
		},
		{
			name:       "postgres realtime with sqlite store",
			mutate:     func(c *Config) { c.Realtime.Driver = RealtimePostgres },
			wantFields: []string{"realtime.driver"},
		},
		{
			name: "postgres realtime with postgres store",
			mutate: func(c *Config) {
				c.Store.Driver = StorePostgres
				c.Store.PostgresDSN = "postgres://localhost/casetrack"
				c.Realtime.Driver = RealtimePostgres
			},
		},
		{
			name:       "kafka without brokers",
			mutate:     func(c *Config) { c.Realtime.Driver = RealtimeKafka },
			wantFields: []string{"realtime.kafka.brokers"},
		},
		{
			name:       "unknown realtime driver",
			mutate:     func(c *Config) { c.Realtime.Driver = "redis" },
			wantFields: []string{"realtime.driver"},
		},
		{
			name:       "negative retention",
			mutate:     func(c *Config) { c.Notifications.Retention = -time.Hour },
			wantFields: []string{"notifications.retention"},
		},
		{
			name:   "zero retention keeps history forever",
			mutate: func(c *Config) { c.Notifications.Retention = 0 },
		},
		{
			name:       "sqlite pool too small",
			mutate:     func(c *Config) { c.Store.SQLite.MaxOpenConns = 0 },
			wantFields: []string{"store.sqlite.max_open_conns"},
		},
		{
			name: "collects multiple errors",
			mutate: func(c *Config) {
				c.DataDir = ""
				c.Storage.MaxSizeBytes = -1
			},
			wantFields: []string{"data_dir", "storage.max_size_bytes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.wantFields, fieldNames(t, err))
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
