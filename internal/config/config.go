// Package config loads service configuration from an optional YAML
// file plus ITERO_ prefixed environment variables. Environment values
// override the file; double underscores map to nesting, so
// ITERO_ROOM__API_KEY sets room.api_key.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variable names.
const envPrefix = "ITERO_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Room      RoomConfig      `koanf:"room"`
	Assistant AssistantConfig `koanf:"assistant"`
	Evaluate  EvaluateConfig  `koanf:"evaluate"`
	Storage   StorageConfig   `koanf:"storage"`
	Cache     CacheConfig     `koanf:"cache"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Agent     AgentConfig     `koanf:"agent"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// MetricsPort serves /metrics, /healthz and /readyz on a sidecar
	// listener.
	MetricsPort     int           `koanf:"metrics_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// RoomConfig holds the video room provider credentials used to mint
// join tokens.
type RoomConfig struct {
	URL       string        `koanf:"url"`
	APIKey    string        `koanf:"api_key"`
	APISecret string        `koanf:"api_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// AssistantConfig holds the voice assistant provider credentials. An
// empty APIKey switches assistant creation to mock mode.
type AssistantConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// EvaluateConfig holds the LLM evaluation backend settings. An empty
// APIKey disables evaluation; ended interviews then keep a default
// evaluation.
type EvaluateConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	Timeout   time.Duration `koanf:"timeout"`
	MaxTokens int           `koanf:"max_tokens"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite, mongo
	SQLite SQLiteConfig `koanf:"sqlite"`
	Mongo  MongoConfig  `koanf:"mongo"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// CacheConfig holds the Redis room-cache settings. Disabled when Addr
// is empty.
type CacheConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// KafkaConfig holds the event publisher settings. Disabled unless
// Enabled is set; disabled mode logs events instead of producing.
type KafkaConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Brokers         []string `koanf:"brokers"`
	TranscriptTopic string   `koanf:"transcript_topic"`
	LifecycleTopic  string   `koanf:"lifecycle_topic"`
}

type AgentConfig struct {
	// ProblemsPath points at a YAML problem pool. Empty selects the
	// embedded defaults.
	ProblemsPath string `koanf:"problems_path"`
}

// Default returns the configuration used when neither the file nor the
// environment overrides a key.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			MetricsPort:     9090,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Room: RoomConfig{
			TokenTTL: 2 * time.Hour,
		},
		Assistant: AssistantConfig{
			BaseURL: "https://api.vapi.ai",
		},
		Evaluate: EvaluateConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			Model:     "llama-3.3-70b-versatile",
			Timeout:   30 * time.Second,
			MaxTokens: 2000,
		},
		Storage: StorageConfig{
			Type:   "memory",
			SQLite: SQLiteConfig{Path: "itero.db"},
			Mongo:  MongoConfig{Database: "itero"},
		},
		Cache: CacheConfig{
			TTL: 2 * time.Hour,
		},
		Kafka: KafkaConfig{
			TranscriptTopic: "interview.transcripts",
			LifecycleTopic:  "interview.lifecycle",
		},
	}
}

// Load reads path (when non-empty) and the environment on top of the
// defaults. A missing file is only an error when the path was given
// explicitly.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage type sqlite requires sqlite.path")
		}
	case "mongo":
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("storage type mongo requires mongo.uri")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled without brokers")
	}
	return nil
}
