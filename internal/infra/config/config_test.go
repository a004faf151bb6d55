package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  secret: from-file
sync:
  defaultDays: 3
  timezone: Europe/Berlin
store:
  driver: sqlite
  sqlite:
    path: /tmp/hs.db
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SYNC_BATCH_SIZE", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("LOCK_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Auth.Secret)
	require.Equal(t, 3, cfg.Sync.DefaultDays)
	require.Equal(t, 90, cfg.Sync.MaxDays)
	require.Equal(t, 25, cfg.Sync.BatchSize)
	require.Equal(t, StoreSQLite, cfg.Store.Driver)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	require.True(t, cfg.Events.Enabled)
	require.Equal(t, 2*time.Minute, cfg.Lock.TTL)

	loc, err := cfg.Sync.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", loc.String())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.Secret = "secret"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing secret":     func(c *Config) { c.Auth.Secret = "" },
		"max below default":  func(c *Config) { c.Sync.MaxDays = 1 },
		"bad timezone":       func(c *Config) { c.Sync.Timezone = "Mars/Olympus" },
		"postgres no dsn":    func(c *Config) { c.Store.Driver = StorePostgres },
		"unknown store":      func(c *Config) { c.Store.Driver = "mongo" },
		"bridge no url":      func(c *Config) { c.Platform.Driver = PlatformBridge },
		"snapshot no bucket": func(c *Config) { c.Platform.Driver = PlatformSnapshot },
		"valkey no addr":     func(c *Config) { c.Valkey.Enabled = true },
		"events no brokers":  func(c *Config) { c.Events.Enabled = true },
		"zero batch":         func(c *Config) { c.Sync.BatchSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
