// Package config handles configuration loading and validation for casetrack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Realtime drivers.
const (
	RealtimeBus      = "bus"
	RealtimePostgres = "postgres"
	RealtimeKafka    = "kafka"
)

// DefaultMaxAttachmentSize is the largest attachment accepted for upload.
const DefaultMaxAttachmentSize int64 = 50 << 20

// Config holds the application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`

	Notifications NotificationsConfig `yaml:"notifications"`
	// Timezone is the IANA zone used for "today" and "tomorrow" labels.
	Timezone string `yaml:"timezone"`
	// Theme names the color palette for CLI output.
	Theme   string `yaml:"theme"`
	DataDir string `yaml:"-"` // set by caller, not from config file
}

// StoreConfig selects and tunes the task row store.
type StoreConfig struct {
	Driver      string         `yaml:"driver"`
	PostgresDSN string         `yaml:"postgres_dsn"`
	SQLite      DatabaseConfig `yaml:"sqlite"`
}

// DatabaseConfig holds SQLite connection pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// RealtimeConfig selects the change-notification backend.
type RealtimeConfig struct {
	Driver          string      `yaml:"driver"`
	PostgresChannel string      `yaml:"postgres_channel"`
	Kafka           KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the Kafka change feed.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StorageConfig configures attachment object storage.
type StorageConfig struct {
	Root          string `yaml:"root"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes"`
}

// NotificationsConfig controls the notification history.
type NotificationsConfig struct {
	// Retention is how long notifications are kept. Zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: StoreSQLite,
			SQLite: DatabaseConfig{
				MaxOpenConns: 10,
				MaxIdleConns: 5,
				BusyTimeout:  5000,
			},
		},
		Realtime: RealtimeConfig{
			Driver:          RealtimeBus,
			PostgresChannel: "tasks_changed",
			Kafka: KafkaConfig{
				Topic: "casetrack.tasks",
			},
		},
		Storage: StorageConfig{
			Bucket:        "task-attachments",
			PublicBaseURL: "http://localhost:8080/files",
			MaxSizeBytes:  DefaultMaxAttachmentSize,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		Notifications: NotificationsConfig{
			Retention: 7 * 24 * time.Hour,
		},
		Timezone: "Local",
		Theme:    styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Store.Driver == "" {
		c.Store.Driver = defaults.Store.Driver
	}
	if c.Store.SQLite.MaxOpenConns == 0 {
		c.Store.SQLite.MaxOpenConns = defaults.Store.SQLite.MaxOpenConns
	}
	if c.Store.SQLite.MaxIdleConns == 0 {
		c.Store.SQLite.MaxIdleConns = defaults.Store.SQLite.MaxIdleConns
	}
	if c.Store.SQLite.BusyTimeout == 0 {
		c.Store.SQLite.BusyTimeout = defaults.Store.SQLite.BusyTimeout
	}
	if c.Realtime.Driver == "" {
		c.Realtime.Driver = defaults.Realtime.Driver
	}
	if c.Realtime.PostgresChannel == "" {
		c.Realtime.PostgresChannel = defaults.Realtime.PostgresChannel
	}
	if c.Realtime.Kafka.Topic == "" {
		c.Realtime.Kafka.Topic = defaults.Realtime.Kafka.Topic
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = defaults.Storage.Bucket
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = defaults.Storage.PublicBaseURL
	}
	if c.Storage.MaxSizeBytes == 0 {
		c.Storage.MaxSizeBytes = defaults.Storage.MaxSizeBytes
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaults.HTTP.Listen
	}
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("cannot be empty"))
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.SQLite.MaxOpenConns < 1 {
			errs = errs.Append("store.sqlite.max_open_conns", fmt.Errorf("must be at least 1"))
		}
		if c.Store.SQLite.MaxIdleConns < 0 {
			errs = errs.Append("store.sqlite.max_idle_conns", fmt.Errorf("cannot be negative"))
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = errs.Append("store.postgres_dsn", fmt.Errorf("required when store.driver is %q", StorePostgres))
		}
	default:
		errs = errs.Append("store.driver", fmt.Errorf("unknown driver %q", c.Store.Driver))
	}

	switch c.Realtime.Driver {
	case RealtimeBus:
	case RealtimePostgres:
		if c.Store.Driver != StorePostgres {
			errs = errs.Append("realtime.driver", fmt.Errorf("%q requires store.driver %q", RealtimePostgres, StorePostgres))
		}
	case RealtimeKafka:
		if len(c.Realtime.Kafka.Brokers) == 0 {
			errs = errs.Append("realtime.kafka.brokers", fmt.Errorf("at least one broker is required"))
		}
	default:
		errs = errs.Append("realtime.driver", fmt.Errorf("unknown driver %q", c.Realtime.Driver))
	}

	if c.Notifications.Retention < 0 {
		errs = errs.Append("notifications.retention", fmt.Errorf("cannot be negative"))
	}

	if c.Storage.MaxSizeBytes < 0 {
		errs = errs.Append("storage.max_size_bytes", fmt.Errorf("cannot be negative"))
	}

	return errs.ToError()
}

// DatabaseDir returns the directory holding the SQLite database.
func (c *Config) DatabaseDir() string {
	return c.DataDir
}

// StorageRoot returns the attachment storage directory.
func (c *Config) StorageRoot() string {
	if c.Storage.Root != "" {
		return c.Storage.Root
	}
	return filepath.Join(c.DataDir, "blobs")
}

// Location resolves the configured timezone. Unknown zones fall back to
// time.Local; ValidateDeep reports them.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
