package config

import (
	"time"

	"github.com/herocast/herocast/logging"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig   `json:"server" yaml:"server"`
	Kafka   KafkaConfig    `json:"kafka" yaml:"kafka"`
	Feed    FeedConfig     `json:"feed" yaml:"feed"`
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// KafkaConfig represents the change-feed consumer configuration
type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

// FeedConfig controls how change records are rendered into chat lines
type FeedConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	EntityLabel string `json:"entity_label" yaml:"entity_label"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "cdc.public.superheroes",
			GroupID: "herocast",
		},
		Feed: FeedConfig{
			Enabled:     true,
			EntityLabel: "SuperHero",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigError("server.port", "invalid port number")
	}

	if c.Server.ReadTimeout < 0 {
		return NewConfigError("server.read_timeout", "timeout cannot be negative")
	}

	if c.Server.WriteTimeout < 0 {
		return NewConfigError("server.write_timeout", "timeout cannot be negative")
	}

	if c.Feed.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return NewConfigError("kafka.brokers", "at least one broker is required")
		}
		if c.Kafka.Topic == "" {
			return NewConfigError("kafka.topic", "topic is required")
		}
		if c.Feed.EntityLabel == "" {
			return NewConfigError("feed.entity_label", "entity label is required")
		}
	}

	return nil
}
