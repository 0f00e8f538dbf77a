// Package config provides configuration loading for corpusd.
package config

import (
	"fmt"
	"time"

	"github.com/anomalyhq/corpusd/internal/tools"
)

// Config is the daemon's full configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Reasoner   ReasonerConfig   `koanf:"reasoner"`
	NATS       NATSConfig       `koanf:"nats"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Weights    tools.Weights    `koanf:"weights"`
}

// TelemetryConfig controls OTLP trace export. Disabled by default; the
// Prometheus endpoint serves metrics either way.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"` // grpc, http/protobuf
	ServiceName    string   `koanf:"service_name"`
	ServiceVersion string   `koanf:"service_version"`
	Insecure       bool     `koanf:"insecure"`
	SamplingRate   float64  `koanf:"sampling_rate"`
	ShutdownWait   Duration `koanf:"shutdown_wait"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// StoreConfig selects the storage backend. The backend is fixed at
// startup; nothing reads the environment at call time.
type StoreConfig struct {
	Vector   VectorConfig `koanf:"vector"`
	SeedFile string       `koanf:"seed_file"`
}

// VectorConfig selects the vector index behind semantic search.
type VectorConfig struct {
	// Provider is none, chromem or qdrant. With none, semantic search
	// reports the embedding layer as unavailable and everything else
	// still works.
	Provider    string       `koanf:"provider"`
	ChromemPath string       `koanf:"chromem_path"` // empty means in-memory
	Qdrant      QdrantConfig `koanf:"qdrant"`
}

// QdrantConfig points at a Qdrant deployment.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKey     Secret `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EmbeddingsConfig points at an OpenAI-compatible embedding endpoint.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// ReasonerConfig points at the chat model driving orchestration and
// bounds what one pass may spend.
type ReasonerConfig struct {
	BaseURL      string   `koanf:"base_url"`
	Model        string   `koanf:"model"`
	APIKey       Secret   `koanf:"api_key"`
	MaxToolCalls int      `koanf:"max_tool_calls"`
	ToolTimeout  Duration `koanf:"tool_timeout"`
}

// NATSConfig controls the optional event broker.
type NATSConfig struct {
	URL           string `koanf:"url"` // empty disables publishing
	SubjectPrefix string `koanf:"subject_prefix"`
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(60 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Store.Vector.Provider == "" {
		cfg.Store.Vector.Provider = "none"
	}
	if cfg.Store.Vector.Qdrant.Port == 0 {
		cfg.Store.Vector.Qdrant.Port = 6334
	}
	if cfg.Store.Vector.Qdrant.VectorSize == 0 {
		cfg.Store.Vector.Qdrant.VectorSize = 768
	}

	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "nomic-embed-text"
	}

	if cfg.Reasoner.Model == "" {
		cfg.Reasoner.Model = "gpt-4o-mini"
	}
	if cfg.Reasoner.MaxToolCalls == 0 {
		cfg.Reasoner.MaxToolCalls = 8
	}
	if cfg.Reasoner.ToolTimeout == 0 {
		cfg.Reasoner.ToolTimeout = Duration(10 * time.Second)
	}

	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "corpusd"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "corpusd"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}
	if cfg.Telemetry.SamplingRate == 0 {
		cfg.Telemetry.SamplingRate = 1.0
	}
	if cfg.Telemetry.ShutdownWait == 0 {
		cfg.Telemetry.ShutdownWait = Duration(5 * time.Second)
	}

	zero := tools.Weights{}
	if cfg.Weights == zero {
		cfg.Weights = tools.DefaultWeights()
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Store.Vector.Provider {
	case "none", "chromem":
	case "qdrant":
		if c.Store.Vector.Qdrant.Host == "" {
			return fmt.Errorf("store.vector.qdrant.host required for the qdrant provider")
		}
	default:
		return fmt.Errorf("store.vector.provider must be none, chromem or qdrant, got %q", c.Store.Vector.Provider)
	}
	if c.Store.Vector.Provider != "none" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url required when a vector provider is configured")
	}

	if c.Reasoner.MaxToolCalls < 1 {
		return fmt.Errorf("reasoner.max_tool_calls must be >= 1, got %d", c.Reasoner.MaxToolCalls)
	}
	if c.Reasoner.ToolTimeout.Duration() < time.Second {
		return fmt.Errorf("reasoner.tool_timeout must be >= 1s, got %s", c.Reasoner.ToolTimeout.Duration())
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry.sampling_rate must be between 0 and 1, got %v", c.Telemetry.SamplingRate)
		}
	}

	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	return nil
}
