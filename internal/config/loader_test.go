package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, "SuperHero", cfg.Feed.EntityLabel)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9001
kafka:
  brokers:
    - kafka-1:9092
    - kafka-2:9092
  topic: cdc.public.villains
  group_id: herocast-test
feed:
  enabled: true
  entity_label: Villain
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "cdc.public.villains", cfg.Kafka.Topic)
	assert.Equal(t, "Villain", cfg.Feed.EntityLabel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEROCAST_SERVER_PORT", "9100")
	t.Setenv("HEROCAST_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("HEROCAST_LOG_FORMAT", "pretty")
	t.Setenv("HEROCAST_FEED_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "pretty", cfg.Logging.Format)
	assert.False(t, cfg.Feed.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			field:  "server.port",
		},
		{
			name:   "negative read timeout",
			mutate: func(c *Config) { c.Server.ReadTimeout = -1 },
			field:  "server.read_timeout",
		},
		{
			name:   "feed enabled without brokers",
			mutate: func(c *Config) { c.Kafka.Brokers = nil },
			field:  "kafka.brokers",
		},
		{
			name:   "feed enabled without topic",
			mutate: func(c *Config) { c.Kafka.Topic = "" },
			field:  "kafka.topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
