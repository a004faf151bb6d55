package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Platform drivers.
const (
	PlatformMemory   = "memory"
	PlatformBridge   = "bridge"
	PlatformSnapshot = "snapshot"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Sync     SyncConfig     `yaml:"sync"`
	Store    StoreConfig    `yaml:"store"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Lock     LockConfig     `yaml:"lock"`
	Queue    QueueConfig    `yaml:"queue"`
	Platform PlatformConfig `yaml:"platform"`
	Events   EventsConfig   `yaml:"events"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures retries of synchronous sync requests that hit a
// transient upstream failure.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AuthConfig verifies bearer tokens issued by the identity service.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
	Leeway   time.Duration `yaml:"leeway"`
}

// SyncConfig holds orchestrator knobs.
type SyncConfig struct {
	DefaultDays        int    `yaml:"defaultDays"`
	MaxDays            int    `yaml:"maxDays"`
	BatchSize          int    `yaml:"batchSize"`
	Timezone           string `yaml:"timezone"`
	ParallelCategories bool   `yaml:"parallelCategories"`
}

// StoreConfig selects the remote record store.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxConns     int32  `yaml:"maxConns"`
	MinConns     int32  `yaml:"minConns"`
	EnsureSchema bool   `yaml:"ensureSchema"`
}

// SQLiteConfig points at a local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ValkeyConfig contains connection information for the lock and job queue.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LockConfig tunes the per-connection run lock.
type LockConfig struct {
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// QueueConfig names the Valkey list holding sync jobs.
type QueueConfig struct {
	Key string `yaml:"key"`
}

// PlatformConfig selects the health platform adapter.
type PlatformConfig struct {
	Driver   string         `yaml:"driver"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// BridgeConfig reaches the device companion bridge.
type BridgeConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	ClientID     string        `yaml:"clientId"`
	ClientSecret string        `yaml:"clientSecret"`
	TokenURL     string        `yaml:"tokenUrl"`
	Scopes       []string      `yaml:"scopes"`
	Timeout      time.Duration `yaml:"timeout"`
	PageSize     int           `yaml:"pageSize"`
}

// SnapshotConfig reads exported samples from an S3-compatible bucket.
type SnapshotConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// EventsConfig controls sync-completed publishing.
type EventsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	setList("HTTP_ALLOWED_ORIGINS", &cfg.HTTP.AllowedOrigins)
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	setBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	setInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	setDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	setString("AUTH_SECRET", &cfg.Auth.Secret)
	setString("AUTH_ISSUER", &cfg.Auth.Issuer)
	setString("AUTH_AUDIENCE", &cfg.Auth.Audience)

	setInt("SYNC_DEFAULT_DAYS", &cfg.Sync.DefaultDays)
	setInt("SYNC_MAX_DAYS", &cfg.Sync.MaxDays)
	setInt("SYNC_BATCH_SIZE", &cfg.Sync.BatchSize)
	setString("SYNC_TIMEZONE", &cfg.Sync.Timezone)
	setBool("SYNC_PARALLEL_CATEGORIES", &cfg.Sync.ParallelCategories)

	setString("STORE_DRIVER", &cfg.Store.Driver)
	setString("POSTGRES_DSN", &cfg.Store.Postgres.DSN)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.MaxConns = int32(parsed)
		}
	}
	setString("SQLITE_PATH", &cfg.Store.SQLite.Path)

	setBool("VALKEY_ENABLED", &cfg.Valkey.Enabled)
	setString("VALKEY_ADDR", &cfg.Valkey.Addr)
	setDuration("LOCK_TTL", &cfg.Lock.TTL)
	setString("QUEUE_KEY", &cfg.Queue.Key)

	setString("PLATFORM_DRIVER", &cfg.Platform.Driver)
	setString("BRIDGE_BASE_URL", &cfg.Platform.Bridge.BaseURL)
	setString("BRIDGE_CLIENT_ID", &cfg.Platform.Bridge.ClientID)
	setString("BRIDGE_CLIENT_SECRET", &cfg.Platform.Bridge.ClientSecret)
	setString("BRIDGE_TOKEN_URL", &cfg.Platform.Bridge.TokenURL)
	setString("SNAPSHOT_ENDPOINT", &cfg.Platform.Snapshot.Endpoint)
	setString("SNAPSHOT_ACCESS_KEY", &cfg.Platform.Snapshot.AccessKey)
	setString("SNAPSHOT_SECRET_KEY", &cfg.Platform.Snapshot.SecretKey)
	setString("SNAPSHOT_BUCKET", &cfg.Platform.Snapshot.Bucket)
	setString("SNAPSHOT_PREFIX", &cfg.Platform.Snapshot.Prefix)

	setBool("EVENTS_ENABLED", &cfg.Events.Enabled)
	setList("KAFKA_BROKERS", &cfg.Events.Brokers)
	setString("EVENTS_TOPIC", &cfg.Events.Topic)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func setList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Minute,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 500 * time.Millisecond,
			},
		},
		Auth: AuthConfig{
			Issuer:   "healthsync",
			TokenTTL: time.Hour,
			Leeway:   30 * time.Second,
		},
		Sync: SyncConfig{
			DefaultDays: 7,
			MaxDays:     90,
			BatchSize:   100,
			Timezone:    "UTC",
		},
		Store: StoreConfig{
			Driver: StoreMemory,
			Postgres: PostgresConfig{
				MaxConns:     4,
				EnsureSchema: true,
			},
			SQLite: SQLiteConfig{Path: "data/healthsync.db"},
		},
		Lock: LockConfig{
			Prefix: "healthsync:lock",
			TTL:    15 * time.Minute,
		},
		Queue: QueueConfig{Key: "healthsync:jobs"},
		Platform: PlatformConfig{
			Driver: PlatformMemory,
			Bridge: BridgeConfig{
				Timeout:  15 * time.Second,
				PageSize: 500,
			},
			Snapshot: SnapshotConfig{Prefix: "exports"},
		},
		Events: EventsConfig{Topic: "wearables.sync.completed"},
	}
}

// Location resolves the configured sync timezone.
func (c SyncConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Sync.DefaultDays <= 0 {
		return errors.New("sync.defaultDays must be positive")
	}
	if c.Sync.MaxDays < c.Sync.DefaultDays {
		return errors.New("sync.maxDays must be at least sync.defaultDays")
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New("sync.batchSize must be positive")
	}
	if _, err := c.Sync.Location(); err != nil {
		return fmt.Errorf("sync.timezone: %w", err)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.Store.Postgres.DSN) == "" {
			return errors.New("store.postgres.dsn cannot be empty for the postgres driver")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLite.Path) == "" {
			return errors.New("store.sqlite.path cannot be empty for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	switch c.Platform.Driver {
	case PlatformMemory:
	case PlatformBridge:
		if strings.TrimSpace(c.Platform.Bridge.BaseURL) == "" {
			return errors.New("platform.bridge.baseUrl cannot be empty for the bridge driver")
		}
		if c.Platform.Bridge.ClientID != "" && c.Platform.Bridge.TokenURL == "" {
			return errors.New("platform.bridge.tokenUrl is required with a clientId")
		}
	case PlatformSnapshot:
		if strings.TrimSpace(c.Platform.Snapshot.Bucket) == "" {
			return errors.New("platform.snapshot.bucket cannot be empty for the snapshot driver")
		}
	default:
		return fmt.Errorf("platform.driver %q is not supported", c.Platform.Driver)
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be positive")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return errors.New("events.brokers cannot be empty when events are enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
