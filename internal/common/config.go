package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/tempo/internal/models"
)

// Config represents the application configuration
type Config struct {
	Store   StoreConfig   `toml:"store"`
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig configures the shared schedule store and its MongoDB
// connection. Supply either mongo_uri or addresses (plus credentials); an
// already-built client injected at construction excludes both.
type StoreConfig struct {
	CollectionPrefix string `toml:"collection_prefix"` // Prefix for all scheduler collections (default: "quartz")
	DBName           string `toml:"db_name" validate:"required"`
	AuthDBName       string `toml:"auth_db_name"` // Database to authenticate against (default: db_name)

	MongoURI  string   `toml:"mongo_uri"` // Full connection string; mutually exclusive with addresses
	Addresses []string `toml:"addresses"` // host:port seed list
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`

	// InstanceID identifies this scheduler node on every lock it takes.
	// Required for cluster safety; generated when left empty.
	InstanceID string `toml:"instance_id" validate:"required"`

	MisfireThresholdMillis int64 `toml:"misfire_threshold_millis" validate:"gte=0"`
	TriggerTimeoutMillis   int64 `toml:"trigger_timeout_millis" validate:"gte=0"`
	JobTimeoutMillis       int64 `toml:"job_timeout_millis" validate:"gte=0"`

	MaxConnectionsPerHost uint64 `toml:"max_connections_per_host"`
	ConnectTimeoutMillis  int64  `toml:"connect_timeout_millis"`
	SocketTimeoutMillis   int64  `toml:"socket_timeout_millis"`

	// Accepted for compatibility with older deployments; the driver keeps
	// TCP keepalive enabled on every connection regardless.
	SocketKeepAlive bool `toml:"socket_keep_alive"`

	// Accepted for compatibility with older deployments; bounds the number
	// of connections the driver may establish concurrently.
	ThreadsAllowedToBlockForConnectionMultiplier uint64 `toml:"threads_allowed_to_block_for_connection_multiplier"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// MisfireThreshold returns how far past its next fire time a trigger may
// run before it counts as misfired.
func (c *StoreConfig) MisfireThreshold() time.Duration {
	return time.Duration(c.MisfireThresholdMillis) * time.Millisecond
}

// TriggerTimeout returns how old a trigger lock may grow before any peer
// may reclaim it.
func (c *StoreConfig) TriggerTimeout() time.Duration {
	return time.Duration(c.TriggerTimeoutMillis) * time.Millisecond
}

// JobTimeout returns how old a job-concurrency lock may grow before any
// peer may remove it.
func (c *StoreConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMillis) * time.Millisecond
}

// CollectionName prefixes a base collection name, e.g. "jobs" becomes
// "quartz_jobs".
func (c *StoreConfig) CollectionName(base string) string {
	return c.CollectionPrefix + "_" + base
}

// HasConnectionParameters reports whether any connection setting was
// supplied, which conflicts with an injected client.
func (c *StoreConfig) HasConnectionParameters() bool {
	return c.MongoURI != "" || len(c.Addresses) > 0 || c.Username != "" || c.Password != ""
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			CollectionPrefix:       "quartz",
			DBName:                 "tempo",
			InstanceID:             NewInstanceID(),
			MisfireThresholdMillis: 5000,
			TriggerTimeoutMillis:   10 * 60 * 1000,
			JobTimeoutMillis:       10 * 60 * 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig loads configuration from defaults, then each file in order,
// then environment overrides, and validates the result.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, models.NewConfigError("invalid configuration: %v", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if uri := os.Getenv("TEMPO_MONGO_URI"); uri != "" {
		config.Store.MongoURI = uri
	}
	if db := os.Getenv("TEMPO_DB_NAME"); db != "" {
		config.Store.DBName = db
	}
	if id := os.Getenv("TEMPO_INSTANCE_ID"); id != "" {
		config.Store.InstanceID = id
	}
	if prefix := os.Getenv("TEMPO_COLLECTION_PREFIX"); prefix != "" {
		config.Store.CollectionPrefix = prefix
	}
	if threshold := os.Getenv("TEMPO_MISFIRE_THRESHOLD_MILLIS"); threshold != "" {
		if v, err := strconv.ParseInt(threshold, 10, 64); err == nil {
			config.Store.MisfireThresholdMillis = v
		}
	}
	if level := os.Getenv("TEMPO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
